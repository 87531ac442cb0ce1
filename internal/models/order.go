package models

// OrderItem is a (product, quantity) pair sent to the remote API.
type OrderItem struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// OrderRequest is the payload of POST /orders. It is built at submission
// time and not retained afterwards.
type OrderRequest struct {
	CustomerName  string        `json:"customerName" validate:"required"`
	CustomerEmail string        `json:"customerEmail" validate:"required,email"`
	AddressID     *int64        `json:"addressId,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	Items         []OrderItem   `json:"items" validate:"required,min=1,dive"`
}

// CreatedOrder is the part of the order creation response the storefront uses.
type CreatedOrder struct {
	ID int64 `json:"id"`
}
