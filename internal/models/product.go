package models

import "github.com/shopspring/decimal"

// Product represents a catalog entry as served by the remote shop API.
// The storefront only ever holds read-only copies.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}
