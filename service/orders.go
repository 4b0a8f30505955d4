package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bmwz1992yc/order-management/backend/model"
)

var (
	// ErrOrderNotFound is returned when no record matches the identifier
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemIndex is returned for an out-of-range line item index
	ErrItemIndex = errors.New("item index out of range")
	// ErrUnknownField is returned for a field name updates do not support
	ErrUnknownField = errors.New("unknown field")
)

// OrderService serves reads and destructive read-modify-write mutations of
// the order collection. No history is kept; an update overwrites in place.
type OrderService struct {
	docs *DocumentStore
}

func NewOrderService(docs *DocumentStore) *OrderService {
	return &OrderService{docs: docs}
}

// List returns every order, newest upload first
func (s *OrderService) List(ctx context.Context) ([]model.Order, error) {
	var collection model.OrderCollection
	if _, err := s.docs.Get(ctx, CollectionKey, &collection); err != nil {
		return nil, err
	}

	orders := collection.Orders
	if orders == nil {
		orders = []model.Order{}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].UploadDate.After(orders[j].UploadDate)
	})
	return orders, nil
}

// UpdateField sets one top-level field, or one line-item field when an item
// index is supplied. Numeric fields coerce to decimal, zero on junk.
func (s *OrderService) UpdateField(ctx context.Context, orderID, field, value string, itemIndex *int, itemField string) error {
	return s.docs.WithRetry(3, func() error {
		var collection model.OrderCollection
		version, err := s.docs.Get(ctx, CollectionKey, &collection)
		if err != nil {
			return err
		}

		order := collection.Find(orderID)
		if order == nil {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}

		if itemIndex != nil {
			if err := updateItemField(order, *itemIndex, itemField, value); err != nil {
				return err
			}
		} else if err := updateOrderField(order, field, value); err != nil {
			return err
		}

		return s.docs.CheckAndPut(ctx, CollectionKey, collection, version)
	})
}

// Delete removes a record. The associated image blob is left in place.
func (s *OrderService) Delete(ctx context.Context, orderID string) error {
	return s.docs.WithRetry(3, func() error {
		var collection model.OrderCollection
		version, err := s.docs.Get(ctx, CollectionKey, &collection)
		if err != nil {
			return err
		}

		if !collection.Remove(orderID) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}

		return s.docs.CheckAndPut(ctx, CollectionKey, collection, version)
	})
}

func updateOrderField(order *model.Order, field, value string) error {
	switch field {
	case "customer_name":
		order.CustomerName = value
	case "order_date":
		order.OrderDate = value
	case "total_amount":
		order.TotalAmount = model.ParseDecimal(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func updateItemField(order *model.Order, index int, field, value string) error {
	if index < 0 || index >= len(order.Items) {
		return fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	item := &order.Items[index]

	switch field {
	case "name":
		item.Name = value
	case "unit":
		item.Unit = value
	case "quantity":
		item.Quantity = model.ParseDecimal(value)
	case "unit_price":
		item.UnitPrice = model.ParseDecimal(value)
	case "amount":
		item.Amount = model.ParseDecimal(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}
