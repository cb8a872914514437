package domain

import "time"

// Customer is an end-user who opens conversations. CustomerKey is the
// externally visible CUST-<YYMM>-<CAT>-<PROD>-<SEQ3> identifier minted at
// first contact.
type Customer struct {
	ID           string
	CustomerKey  string
	Name         string
	Email        string
	Category     string
	ProductModel string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
