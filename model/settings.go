package model

// Provider name constants
const (
	ProviderOpenAI = "openai-compatible"
	ProviderGemini = "gemini"
)

// ProviderEntry holds the credentials and model selection for one provider
type ProviderEntry struct {
	APIURL    string `json:"api_url,omitempty"`
	ModelName string `json:"model_name"`
	APIKey    string `json:"api_key,omitempty"`
}

// ProviderSettings is the nested, current shape of the settings document
type ProviderSettings struct {
	ActiveProvider string                   `json:"active_provider"`
	Providers      map[string]ProviderEntry `json:"providers"`
}

// LegacySettings is the flat single-provider shape written by early
// deployments, recognized only so it can be migrated
type LegacySettings struct {
	APIProvider string `json:"api_provider"`
	APIURL      string `json:"api_url"`
	ModelName   string `json:"model_name"`
	APIKey      string `json:"api_key"`
}

// DefaultProviderSettings returns the built-in two-provider template used
// when no settings document exists yet
func DefaultProviderSettings() ProviderSettings {
	return ProviderSettings{
		ActiveProvider: ProviderOpenAI,
		Providers: map[string]ProviderEntry{
			ProviderOpenAI: {
				APIURL:    "https://api.openai.com/v1",
				ModelName: "gpt-4o-mini",
			},
			ProviderGemini: {
				ModelName: "gemini-1.5-flash",
			},
		},
	}
}

// Active returns the entry for the currently active provider
func (s ProviderSettings) Active() (ProviderEntry, bool) {
	e, ok := s.Providers[s.ActiveProvider]
	return e, ok
}

// Redacted returns a deep copy with every api_key stripped. Settings must
// never cross the server boundary unredacted.
func (s ProviderSettings) Redacted() ProviderSettings {
	out := ProviderSettings{
		ActiveProvider: s.ActiveProvider,
		Providers:      make(map[string]ProviderEntry, len(s.Providers)),
	}
	for name, e := range s.Providers {
		e.APIKey = ""
		out.Providers[name] = e
	}
	return out
}
