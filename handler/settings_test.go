package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bmwz1992yc/order-management/backend/model"
	"github.com/bmwz1992yc/order-management/backend/service"
	"github.com/gin-gonic/gin"
)

func newSettingsHandler() (*SettingsHandler, *service.SettingsService) {
	docs := service.NewDocumentStore(newMemObjectStore())
	svc := service.NewSettingsService(docs)
	return NewSettingsHandler(svc), svc
}

func TestSettingsHandlerGetNeverLeaksKeys(t *testing.T) {
	handler, svc := newSettingsHandler()

	err := svc.Update(context.Background(), model.ProviderOpenAI, service.SettingsUpdate{
		ModelName: "gpt-4o-mini",
		APIKey:    "sk-super-secret",
	})
	if err != nil {
		t.Fatalf("Failed to seed settings: %v", err)
	}

	router := gin.New()
	router.GET("/settings", handler.Get)

	req := httptest.NewRequest("GET", "/settings", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "sk-super-secret") || strings.Contains(w.Body.String(), "api_key") {
		t.Errorf("Response leaked a secret: %s", w.Body.String())
	}

	var response model.ProviderSettings
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Providers[model.ProviderOpenAI].ModelName != "gpt-4o-mini" {
		t.Error("Expected non-secret fields to survive redaction")
	}
}

func TestSettingsHandlerUpdate(t *testing.T) {
	handler, svc := newSettingsHandler()

	router := gin.New()
	router.POST("/settings", handler.Update)

	body := `{"active_provider":"gemini","config_data":{"model_name":"gemini-1.5-pro","api_key":"g-key"}}`
	req := httptest.NewRequest("POST", "/settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	settings, err := svc.Read(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if settings.ActiveProvider != model.ProviderGemini {
		t.Errorf("Expected gemini active, got %s", settings.ActiveProvider)
	}
	if settings.Providers[model.ProviderGemini].APIKey != "g-key" {
		t.Error("Expected api_key stored")
	}
}

func TestSettingsHandlerUpdateMalformedBody(t *testing.T) {
	handler, _ := newSettingsHandler()

	router := gin.New()
	router.POST("/settings", handler.Update)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"missing active_provider", `{"config_data":{"api_key":"k"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/settings", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}
