package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bmwz1992yc/order-management/backend/model"
	"github.com/bmwz1992yc/order-management/backend/pkg/logger"
)

// ImagePrefix is the key prefix under which order image blobs are stored
const ImagePrefix = "images/"

// placeholderCustomer is recorded when the provider did not read a name
const placeholderCustomer = "Unknown Customer"

const commitAttempts = 3

// UploadFile is one submitted image
type UploadFile struct {
	Filename string
	MimeType string
	Data     []byte
}

// FileResult reports the outcome for one file of a batch
type FileResult struct {
	Success  bool         `json:"success"`
	Filename string       `json:"filename"`
	Data     *model.Order `json:"data,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// IngestService runs the batch pipeline: settings and collection are loaded
// once, files are processed strictly sequentially so identifier allocation
// can scan the growing in-memory collection, and the mutated collection is
// committed in a single write at the end.
type IngestService struct {
	docs       *DocumentStore
	objects    ObjectStore
	settings   *SettingsService
	httpClient *http.Client
	now        func() time.Time
}

func NewIngestService(docs *DocumentStore, objects ObjectStore, settings *SettingsService) *IngestService {
	return &IngestService{
		docs:     docs,
		objects:  objects,
		settings: settings,
		now:      time.Now,
	}
}

// extractedOrder is the schema the provider is asked to produce. Decimal
// fields coerce junk to zero instead of failing the document.
type extractedOrder struct {
	CustomerName string           `json:"customer_name"`
	Items        []model.LineItem `json:"items"`
	TotalAmount  model.Decimal    `json:"total_amount"`
	OrderDate    string           `json:"order_date"`
}

type pendingFile struct {
	resultIndex int
	filename    string
	mimeType    string
	data        []byte
	order       model.Order
}

// Ingest processes one batch of images. A non-nil error means a setup or
// commit failure with the whole batch aborted; per-file failures are
// reported inside the result list and never abort the rest of the batch.
func (s *IngestService) Ingest(ctx context.Context, files []UploadFile) ([]FileResult, error) {
	settings, err := s.settings.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	entry, err := validateProvider(settings)
	if err != nil {
		return nil, err
	}

	extractor, err := NewExtractor(settings.ActiveProvider, entry, s.httpClient)
	if err != nil {
		return nil, err
	}

	var collection model.OrderCollection
	version, err := s.docs.Get(ctx, CollectionKey, &collection)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, 0, len(files))
	pending := make([]pendingFile, 0, len(files))

	for _, f := range files {
		result := FileResult{Filename: f.Filename}

		order, err := s.processFile(ctx, extractor, &collection, f)
		if err != nil {
			logger.Warn(ctx, "file ingestion failed", "filename", f.Filename, "error", err)
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		collection.Orders = append(collection.Orders, order)
		result.Success = true
		results = append(results, result)
		pending = append(pending, pendingFile{
			resultIndex: len(results) - 1,
			filename:    f.Filename,
			mimeType:    f.MimeType,
			data:        f.Data,
			order:       order,
		})
	}

	if len(pending) == 0 {
		return results, nil
	}

	if err := s.commit(ctx, &collection, version, pending); err != nil {
		return nil, err
	}

	for i := range pending {
		results[pending[i].resultIndex].Data = &pending[i].order
	}
	return results, nil
}

// processFile runs extraction through record assembly for one image. Any
// returned error is a per-file failure; the order is not created.
func (s *IngestService) processFile(ctx context.Context, extractor Extractor, collection *model.OrderCollection, f UploadFile) (model.Order, error) {
	if len(f.Data) == 0 {
		return model.Order{}, errors.New("empty file")
	}

	raw, err := extractor.Extract(ctx, f.Data, f.MimeType)
	if err != nil {
		return model.Order{}, err
	}

	var extracted extractedOrder
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &extracted); err != nil {
		return model.Order{}, fmt.Errorf("provider returned malformed JSON: %w", err)
	}

	// Normalize: placeholder name, empty item list, server date fallback.
	// Extracted values are otherwise trusted as-is.
	if extracted.CustomerName == "" {
		extracted.CustomerName = placeholderCustomer
	}
	if extracted.Items == nil {
		extracted.Items = []model.LineItem{}
	}
	orderDate := extracted.OrderDate
	if _, err := time.Parse("2006-01-02", orderDate); err != nil {
		orderDate = s.now().UTC().Format("2006-01-02")
	}

	orderID := collection.NextOrderID(model.DatePrefix(orderDate))
	imageKey := ImagePrefix + orderID + "-" + f.Filename

	if err := s.objects.PutObject(ctx, imageKey, f.Data, f.MimeType); err != nil {
		return model.Order{}, err
	}

	return model.Order{
		OrderID:      orderID,
		CustomerName: extracted.CustomerName,
		Items:        extracted.Items,
		TotalAmount:  extracted.TotalAmount,
		OrderDate:    orderDate,
		UploadDate:   s.now().UTC(),
		ImageKey:     imageKey,
	}, nil
}

// commit writes the mutated collection once. On a version conflict the
// batch is re-applied against the fresh collection: identifiers are
// re-allocated and any image whose key changed is stored again under the
// new key. The blob under the old key is left behind, the same class of
// orphan as a failed commit after image writes.
func (s *IngestService) commit(ctx context.Context, collection *model.OrderCollection, version int64, pending []pendingFile) error {
	var err error
	for attempt := 0; attempt < commitAttempts; attempt++ {
		err = s.docs.CheckAndPut(ctx, CollectionKey, collection, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("failed to store order collection: %w", err)
		}

		logger.Warn(ctx, "collection changed during batch, re-allocating identifiers", "attempt", attempt+1)

		fresh := model.OrderCollection{}
		version, err = s.docs.Get(ctx, CollectionKey, &fresh)
		if err != nil {
			return err
		}

		for i := range pending {
			p := &pending[i]
			orderID := fresh.NextOrderID(model.DatePrefix(p.order.OrderDate))
			if orderID != p.order.OrderID {
				imageKey := ImagePrefix + orderID + "-" + p.filename
				if err := s.objects.PutObject(ctx, imageKey, p.data, p.mimeType); err != nil {
					return fmt.Errorf("failed to re-store image %s: %w", imageKey, err)
				}
				p.order.OrderID = orderID
				p.order.ImageKey = imageKey
			}
			fresh.Orders = append(fresh.Orders, p.order)
		}
		*collection = fresh
	}
	return fmt.Errorf("failed to store order collection: %w", err)
}

// validateProvider checks batch prerequisites before any network call:
// credentials and model always, an endpoint for the openai-compatible
// variant. These are configuration errors, fatal to the whole batch.
func validateProvider(settings model.ProviderSettings) (model.ProviderEntry, error) {
	entry, ok := settings.Active()
	if !ok {
		return model.ProviderEntry{}, fmt.Errorf("provider %s is not configured", settings.ActiveProvider)
	}
	if entry.APIKey == "" {
		return model.ProviderEntry{}, fmt.Errorf("no API key configured for provider %s", settings.ActiveProvider)
	}
	if entry.ModelName == "" {
		return model.ProviderEntry{}, fmt.Errorf("no model configured for provider %s", settings.ActiveProvider)
	}
	if settings.ActiveProvider == model.ProviderOpenAI && entry.APIURL == "" {
		return model.ProviderEntry{}, fmt.Errorf("no API URL configured for provider %s", settings.ActiveProvider)
	}
	return entry, nil
}
