package models

import "time"

type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Items          []OrderItem `json:"items"`
	PaymentMethod  string      `json:"paymentMethod"`
	TotalAmount    float64     `json:"totalAmount"`
	Status         string      `json:"status"`
	IdempotencyKey string      `json:"-"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type OrderItem struct {
	BookID   string  `json:"bookId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
)

type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCreditCard, PaymentPayPal, PaymentBankTransfer:
		return true
	}
	return false
}

type CreateOrderRequest struct {
	Items         []OrderItem `json:"items"`
	PaymentMethod string      `json:"paymentMethod"`
	TotalAmount   float64     `json:"totalAmount"`
}
