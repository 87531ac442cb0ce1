package models

import (
	"fmt"
	"strings"
)

// PaymentMethod is a label recorded on the order; no payment is processed.
type PaymentMethod string

const (
	PaymentInvoice PaymentMethod = "INVOICE"
	PaymentCard    PaymentMethod = "CARD"
	PaymentPayPal  PaymentMethod = "PAYPAL"
)

// DefaultPaymentMethod applies when the customer never picks one.
const DefaultPaymentMethod = PaymentInvoice

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{PaymentInvoice, PaymentCard, PaymentPayPal}

// ParsePaymentMethod accepts any casing of a known method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown payment method: %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of the enumerated methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentInvoice, PaymentCard, PaymentPayPal:
		return true
	}
	return false
}

// Label is the human readable name shown on the review step.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentInvoice:
		return "Invoice"
	case PaymentCard:
		return "Credit card (demo)"
	case PaymentPayPal:
		return "PayPal (demo)"
	}
	return string(m)
}

func (m PaymentMethod) String() string {
	return string(m)
}
