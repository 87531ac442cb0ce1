package models

import "github.com/shopspring/decimal"

// CartLine is a single product entry in a visitor's cart.
// Name and Price are snapshotted when the product is first added.
type CartLine struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns price × quantity for the line.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
