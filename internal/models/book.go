package models

// Book is the authoritative catalog entry used to price orders.
type Book struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}
