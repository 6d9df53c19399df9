package models

import "time"

// Transaction запись о продаже, создаётся при принятии предложения.
type Transaction struct {
	ID          int64      `db:"id" json:"id"`
	ProductID   int64      `db:"product_id" json:"product_id"`
	BuyerID     int64      `db:"buyer_id" json:"buyer_id"`
	OfferID     int64      `db:"offer_id" json:"offer_id"`
	TransacDone bool       `db:"transac_done" json:"transac_done"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// TransactionParties транзакция вместе с продавцом товара.
type TransactionParties struct {
	Transaction
	SellerID int64 `db:"seller_id" json:"seller_id"`
}

// Purchase покупка текущего пользователя.
type Purchase struct {
	TransactionID  int64      `db:"transaction_id" json:"transaction_id"`
	ProductID      int64      `db:"product_id" json:"product_id"`
	ProductName    string     `db:"product_name" json:"product_name"`
	Price          float64    `db:"price" json:"price"`
	SellerID       int64      `db:"seller_id" json:"seller_id"`
	SellerUsername string     `db:"seller_username" json:"seller_username"`
	TransacDone    bool       `db:"transac_done" json:"transac_done"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	Reviewed       bool       `db:"reviewed" json:"reviewed"`
}

// SentOffer предложение, отправленное текущим пользователем.
type SentOffer struct {
	OfferID        int64     `db:"offer_id" json:"offer_id"`
	ProductID      int64     `db:"product_id" json:"product_id"`
	ProductName    string    `db:"product_name" json:"product_name"`
	ListPrice      float64   `db:"list_price" json:"list_price"`
	OfferPrice     float64   `db:"offer_price" json:"offer_price"`
	Status         string    `db:"status" json:"status"`
	SellerUsername string    `db:"seller_username" json:"seller_username"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ReceivedOffer предложение на объявление текущего пользователя.
type ReceivedOffer struct {
	OfferID       int64     `db:"offer_id" json:"offer_id"`
	ProductID     int64     `db:"product_id" json:"product_id"`
	ProductName   string    `db:"product_name" json:"product_name"`
	ListPrice     float64   `db:"list_price" json:"list_price"`
	OfferPrice    float64   `db:"offer_price" json:"offer_price"`
	Status        string    `db:"status" json:"status"`
	BuyerID       int64     `db:"buyer_id" json:"buyer_id"`
	BuyerUsername string    `db:"buyer_username" json:"buyer_username"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
