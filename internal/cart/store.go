// Package cart holds the visitor's in-memory shopping cart.
package cart

import (
	"sync"

	"campusshop/internal/models"

	"github.com/shopspring/decimal"
)

// Store is an insertion-ordered set of cart lines keyed by product id.
// It lives exactly as long as the visitor session that owns it.
type Store struct {
	mu    sync.RWMutex
	lines []models.CartLine
}

// NewStore creates an empty cart.
func NewStore() *Store {
	return &Store{}
}

// AddItem adds one unit of product. An existing line is incremented; a new
// line snapshots the product's name and price.
func (s *Store) AddItem(product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(product.ID); i >= 0 {
		s.lines[i].Quantity++
		return
	}
	s.lines = append(s.lines, models.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  1,
	})
}

// RemoveItem deletes the line for productID. Absent ids are ignored.
func (s *Store) RemoveItem(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(productID)
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line.
func (s *Store) UpdateQuantity(productID int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(productID)
		return
	}
	if i := s.indexOf(productID); i >= 0 {
		s.lines[i].Quantity = quantity
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Lines returns a copy of the cart lines in the order they were added.
func (s *Store) Lines() []models.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the line for productID, if present.
func (s *Store) Line(productID int64) (models.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(productID); i >= 0 {
		return s.lines[i], true
	}
	return models.CartLine{}, false
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines) == 0
}

// TotalItemCount is the sum of all line quantities.
func (s *Store) TotalItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice sums snapshot price × quantity over all lines. Catalog price
// changes after add time do not affect it.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Total(s.lines)
}

// OrderItems projects the cart onto the order wire format, preserving order.
func (s *Store) OrderItems() []models.OrderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.OrderItem, 0, len(s.lines))
	for _, l := range s.lines {
		items = append(items, models.OrderItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return items
}

// Total sums the line totals of lines.
func Total(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

func (s *Store) indexOf(productID int64) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) remove(productID int64) {
	if i := s.indexOf(productID); i >= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
}
