package service

import (
	"context"
	"encoding/json"

	"github.com/bmwz1992yc/order-management/backend/model"
)

// SettingsService owns the provider settings document: defaults on first
// read, legacy-shape migration on update, api_key redaction before anything
// leaves the server boundary.
type SettingsService struct {
	docs *DocumentStore
}

func NewSettingsService(docs *DocumentStore) *SettingsService {
	return &SettingsService{docs: docs}
}

// SettingsUpdate carries the field updates for one provider entry. APIURL
// is a pointer because an explicit empty string clears the URL, while for
// ModelName and APIKey an empty submission means "leave unchanged" so a
// partial form cannot blank a stored secret.
type SettingsUpdate struct {
	APIURL    *string
	ModelName string
	APIKey    string
}

// Read returns the current settings, unredacted, as the nested shape.
// A legacy flat document is converted in memory; the stored document is
// only rewritten when an update is requested.
func (s *SettingsService) Read(ctx context.Context) (model.ProviderSettings, error) {
	settings, _, err := s.load(ctx)
	return settings, err
}

// Update applies a settings change for the named provider, migrating and
// persisting the full unredacted document. The provider name is stored as
// submitted without checking it names a configured provider.
func (s *SettingsService) Update(ctx context.Context, activeProvider string, upd SettingsUpdate) error {
	return s.docs.WithRetry(3, func() error {
		settings, ver, err := s.load(ctx)
		if err != nil {
			return err
		}

		settings.ActiveProvider = activeProvider

		entry := settings.Providers[activeProvider]
		if upd.APIURL != nil {
			entry.APIURL = *upd.APIURL
		}
		if upd.ModelName != "" {
			entry.ModelName = upd.ModelName
		}
		if upd.APIKey != "" {
			entry.APIKey = upd.APIKey
		}
		settings.Providers[activeProvider] = entry

		return s.docs.CheckAndPut(ctx, SettingsKey, settings, ver)
	})
}

// load reads the raw settings document and normalizes it to the nested
// shape: absent -> defaults, legacy flat -> migrated, nested -> merged over
// defaults so newly introduced provider entries appear without clobbering
// existing credentials.
func (s *SettingsService) load(ctx context.Context) (model.ProviderSettings, int64, error) {
	var raw json.RawMessage
	ver, err := s.docs.Get(ctx, SettingsKey, &raw)
	if err != nil {
		return model.ProviderSettings{}, 0, err
	}
	if len(raw) == 0 {
		return model.DefaultProviderSettings(), ver, nil
	}

	var nested model.ProviderSettings
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Providers != nil {
		return mergeDefaults(nested), ver, nil
	}

	var legacy model.LegacySettings
	if err := json.Unmarshal(raw, &legacy); err == nil && legacy.APIProvider != "" {
		return migrateLegacy(legacy), ver, nil
	}

	return model.DefaultProviderSettings(), ver, nil
}

// migrateLegacy rebuilds the nested default shape and copies the flat
// document's credentials into the provider it was pointing at
func migrateLegacy(legacy model.LegacySettings) model.ProviderSettings {
	settings := model.DefaultProviderSettings()
	settings.ActiveProvider = legacy.APIProvider

	entry := settings.Providers[legacy.APIProvider]
	if legacy.APIURL != "" {
		entry.APIURL = legacy.APIURL
	}
	if legacy.ModelName != "" {
		entry.ModelName = legacy.ModelName
	}
	if legacy.APIKey != "" {
		entry.APIKey = legacy.APIKey
	}
	settings.Providers[legacy.APIProvider] = entry

	return settings
}

// mergeDefaults fills in provider entries the stored document does not have
// yet. Existing entries keep their stored values; an api_url cleared to
// empty stays cleared.
func mergeDefaults(settings model.ProviderSettings) model.ProviderSettings {
	for name, def := range model.DefaultProviderSettings().Providers {
		entry, ok := settings.Providers[name]
		if !ok {
			settings.Providers[name] = def
			continue
		}
		if entry.ModelName == "" {
			entry.ModelName = def.ModelName
			settings.Providers[name] = entry
		}
	}
	return settings
}
