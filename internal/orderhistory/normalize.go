// Package orderhistory turns raw order records of the shop API into the
// read model shown on the order history page. All knowledge about the
// upstream field names lives here.
package orderhistory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the display category of an order.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusOther      Status = "OTHER"
)

// Field fallback chains, searched left to right.
var (
	statusKeys = []string{"status", "orderStatus", "state"}
	totalKeys  = []string{"totalAmount", "totalPrice", "total"}
	dateKeys   = []string{"orderDate", "createdAt", "creationDate", "createdOn"}
	nameKeys   = []string{"productName", "name"}
)

const defaultItemName = "Item"

// Line is one ordered product. The API does not report per-line prices.
type Line struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// Order is the normalized history entry.
type Order struct {
	ID          string          `json:"id"`
	Status      Status          `json:"status"`
	StatusLabel string          `json:"statusLabel"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	CreatedRaw  string          `json:"createdRaw,omitempty"`
	Items       []Line          `json:"items"`
	ItemCount   int             `json:"itemCount"`
	Total       decimal.Decimal `json:"total"`
}

// Summary aggregates a history.
type Summary struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// History is the page model: all orders plus their summary.
type History struct {
	Orders  []Order `json:"orders"`
	Summary Summary `json:"summary"`
}

// Normalize converts one raw record.
func Normalize(raw map[string]any) Order {
	status, label := Classify(stringField(raw, statusKeys...))
	order := Order{
		ID:          stringField(raw, "id"),
		Status:      status,
		StatusLabel: label,
		Total:       decimalField(raw, totalKeys...),
		Items:       []Line{},
	}

	if rawDate := stringField(raw, dateKeys...); rawDate != "" {
		if ts, ok := parseDate(rawDate); ok {
			order.CreatedAt = &ts
		} else {
			order.CreatedRaw = rawDate
		}
	}

	if items, ok := raw["items"].([]any); ok {
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			name := stringField(m, nameKeys...)
			if name == "" {
				name = defaultItemName
			}
			qty := int(decimalField(m, "quantity").IntPart())
			order.Items = append(order.Items, Line{ProductName: name, Quantity: qty})
			order.ItemCount += qty
		}
	}
	return order
}

// NormalizeAll converts a list of raw records and computes the summary.
func NormalizeAll(raws []map[string]any) History {
	h := History{Orders: make([]Order, 0, len(raws)), Summary: Summary{Total: decimal.Zero}}
	for _, raw := range raws {
		o := Normalize(raw)
		h.Orders = append(h.Orders, o)
		h.Summary.Total = h.Summary.Total.Add(o.Total)
	}
	h.Summary.Count = len(h.Orders)
	return h
}

// Classify maps a free-form status onto a display category and label.
// Unrecognised statuses, including blank ones, pass through uppercased and
// untrimmed.
func Classify(raw string) (Status, string) {
	s := strings.ToUpper(raw)
	switch {
	case s == "":
		return StatusProcessing, "Processing"
	case strings.Contains(s, "NEW") || strings.Contains(s, "CREATED"):
		return StatusNew, "New"
	case strings.Contains(s, "PROCESS") || strings.Contains(s, "PENDING"):
		return StatusProcessing, "Processing"
	case strings.Contains(s, "PAID") || strings.Contains(s, "DONE") || strings.Contains(s, "COMPLETED"):
		return StatusCompleted, "Completed"
	case strings.Contains(s, "CANCEL"):
		return StatusCancelled, "Cancelled"
	}
	return StatusOther, s
}

// stringField returns the first present, non-null key as text.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case json.Number:
			return t.String()
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

// decimalField coerces the first present key to a decimal, zero if none
// is present or the value is not numeric.
func decimalField(m map[string]any, keys ...string) decimal.Decimal {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		var (
			d   decimal.Decimal
			err error
		)
		switch t := v.(type) {
		case json.Number:
			d, err = decimal.NewFromString(t.String())
		case float64:
			d = decimal.NewFromFloat(t)
		case int:
			d = decimal.NewFromInt(int64(t))
		case int64:
			d = decimal.NewFromInt(t)
		case string:
			d, err = decimal.NewFromString(strings.TrimSpace(t))
		default:
			err = fmt.Errorf("unsupported type %T", v)
		}
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
