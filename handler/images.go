package handler

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bmwz1992yc/order-management/backend/service"
	"github.com/gin-gonic/gin"
)

// ImageHandler streams stored order images back to the client
type ImageHandler struct {
	objects service.ObjectStore
}

func NewImageHandler(objects service.ObjectStore) *ImageHandler {
	return &ImageHandler{objects: objects}
}

// Get serves the image blob for a key under the image prefix
func (h *ImageHandler) Get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image key"})
		return
	}

	data, err := h.objects.GetObject(c.Request.Context(), service.ImagePrefix+key)
	if errors.Is(err, service.ErrObjectNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load image"})
		return
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(key)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, data)
}
