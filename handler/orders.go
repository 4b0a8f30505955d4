package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bmwz1992yc/order-management/backend/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	ingest *service.IngestService
	orders *service.OrderService
}

func NewOrderHandler(ingest *service.IngestService, orders *service.OrderService) *OrderHandler {
	return &OrderHandler{
		ingest: ingest,
		orders: orders,
	}
}

// Upload ingests a batch of photographed orders from the "images" form
// field. Setup failures abort with 500; per-file failures come back inside
// the result list.
func (h *OrderHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	uploads := make([]service.UploadFile, 0, len(files))
	for _, fh := range files {
		upload := service.UploadFile{
			Filename: filepath.Base(fh.Filename),
			MimeType: imageMimeType(fh.Filename, fh.Header.Get("Content-Type")),
		}
		if f, err := fh.Open(); err == nil {
			data, err := io.ReadAll(f)
			f.Close()
			if err == nil {
				upload.Data = data
			}
		}
		// An unreadable file keeps empty Data and fails inside the batch
		uploads = append(uploads, upload)
	}

	results, err := h.ingest.Ingest(c.Request.Context(), uploads)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// List returns the full collection, newest upload first
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type UpdateOrderRequest struct {
	OrderID   string          `json:"order_id" binding:"required"`
	Field     string          `json:"field" binding:"required"`
	Value     json.RawMessage `json:"value"`
	ItemIndex *int            `json:"item_index"`
	ItemField string          `json:"item_field"`
}

// Update sets one field of an order, or one field of a line item when
// item_index and item_field are supplied
func (h *OrderHandler) Update(c *gin.Context) {
	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.orders.UpdateField(c.Request.Context(), req.OrderID, req.Field, rawToString(req.Value), req.ItemIndex, req.ItemField)
	switch {
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrItemIndex):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Order updated"})
	}
}

// Delete removes an order record. Its image blob is not removed.
func (h *OrderHandler) Delete(c *gin.Context) {
	orderID := c.Param("id")

	err := h.orders.Delete(c.Request.Context(), orderID)
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete order"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
	}
}

// rawToString renders a JSON value as the plain string the update
// operations consume: quoted strings are unquoted, everything else is
// passed through as written
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// imageMimeType resolves a usable content type for an uploaded image
func imageMimeType(filename, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); t != "" {
		return t
	}
	return "image/jpeg"
}
