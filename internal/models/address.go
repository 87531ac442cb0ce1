package models

// Address represents a saved delivery address of the logged-in customer.
type Address struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Street         string `json:"street"`
	PostalCode     string `json:"postalCode"`
	City           string `json:"city"`
	Country        string `json:"country"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
	DefaultAddress bool   `json:"defaultAddress"`
}
