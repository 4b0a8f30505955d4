package handler

import (
	"net/http"

	"github.com/bmwz1992yc/order-management/backend/service"
	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settings *service.SettingsService
}

func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the settings document with every api_key stripped
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Read(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, settings.Redacted())
}

type UpdateSettingsRequest struct {
	ActiveProvider string `json:"active_provider" binding:"required"`
	ConfigData     struct {
		APIURL    *string `json:"api_url"`
		ModelName string  `json:"model_name"`
		APIKey    string  `json:"api_key"`
	} `json:"config_data"`
}

// Update switches the active provider and applies field updates to its
// entry, migrating a legacy-shape document first if one is stored
func (h *SettingsHandler) Update(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.settings.Update(c.Request.Context(), req.ActiveProvider, service.SettingsUpdate{
		APIURL:    req.ConfigData.APIURL,
		ModelName: req.ConfigData.ModelName,
		APIKey:    req.ConfigData.APIKey,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}
