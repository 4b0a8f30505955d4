package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Order represents one ingested handwritten order
type Order struct {
	OrderID      string     `json:"order_id"` // YYYYMMDD-NN
	CustomerName string     `json:"customer_name"`
	Items        []LineItem `json:"items"`
	TotalAmount  Decimal    `json:"total_amount"`
	OrderDate    string     `json:"order_date"` // YYYY-MM-DD
	UploadDate   time.Time  `json:"upload_date"`
	ImageKey     string     `json:"image_r2_key"`
}

// LineItem is one extracted line of an order. No cross-field invariant is
// enforced; amount is not recomputed from quantity times unit price.
type LineItem struct {
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Quantity  Decimal `json:"quantity"`
	UnitPrice Decimal `json:"unit_price"`
	Amount    Decimal `json:"amount"`
}

// OrderCollection is the single aggregate holding every order record
type OrderCollection struct {
	Orders []Order `json:"orders"`
}

// DatePrefix converts an order date to the 8-digit identifier prefix
func DatePrefix(orderDate string) string {
	return strings.ReplaceAll(orderDate, "-", "")
}

// NextOrderID allocates the next identifier for a date by scanning for the
// maximum sequence number already present under that date's prefix. Deleted
// sequence numbers are never reused because the scan keys off the maximum,
// not the count.
func (c *OrderCollection) NextOrderID(datePrefix string) string {
	maxSeq := 0
	for i := range c.Orders {
		id := c.Orders[i].OrderID
		if !strings.HasPrefix(id, datePrefix+"-") {
			continue
		}
		seq, err := strconv.Atoi(id[len(datePrefix)+1:])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("%s-%02d", datePrefix, maxSeq+1)
}

// Find returns the order with the given identifier, or nil
func (c *OrderCollection) Find(orderID string) *Order {
	for i := range c.Orders {
		if c.Orders[i].OrderID == orderID {
			return &c.Orders[i]
		}
	}
	return nil
}

// Remove deletes the order with the given identifier, reporting whether a
// record was actually removed
func (c *OrderCollection) Remove(orderID string) bool {
	before := len(c.Orders)
	kept := c.Orders[:0]
	for _, o := range c.Orders {
		if o.OrderID != orderID {
			kept = append(kept, o)
		}
	}
	c.Orders = kept
	return len(c.Orders) != before
}
