package models

import "time"

// Offer описывает предложение цены покупателем.
type Offer struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	BuyerID   int64     `db:"buyer_id" json:"buyer_id"`
	Price     float64   `db:"price" json:"price"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsPending сообщает, что предложение ещё не рассмотрено.
func (o *Offer) IsPending() bool {
	return o.Status == OfferStatusPending
}

// OfferView предложение вместе с именем покупателя.
type OfferView struct {
	Offer
	BuyerUsername string `db:"buyer_username" json:"buyer_username"`
}

// AcceptResult итог принятия предложения.
type AcceptResult struct {
	Offer       *Offer       `json:"offer"`
	Transaction *Transaction `json:"transaction,omitempty"`
	// Rejected предложения, отклонённые каскадом.
	Rejected []Offer `json:"rejected,omitempty"`
}
