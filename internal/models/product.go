package models

import "time"

// Category описывает категорию товаров.
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// Product описывает объявление продавца.
type Product struct {
	ID          int64     `db:"id" json:"id"`
	SellerID    int64     `db:"seller_id" json:"seller_id"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Price       float64   `db:"price" json:"price"`
	Condition   string    `db:"condition" json:"condition"`
	Description string    `db:"description" json:"description"`
	Location    string    `db:"location" json:"location"`
	IsAvail     bool      `db:"is_avail" json:"is_avail"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProductImage описывает изображение объявления.
type ProductImage struct {
	ID           int64     `db:"id" json:"id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	StorageKey   string    `db:"storage_key" json:"-"`
	URL          string    `db:"url" json:"url"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	IsCover      bool      `db:"is_cover" json:"is_cover"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NewImage описывает уже загруженный в хранилище файл, который нужно привязать к объявлению.
type NewImage struct {
	StorageKey string
	URL        string
}

// ProductSummary элемент списка объявлений.
type ProductSummary struct {
	Product
	CategoryName   string  `db:"category_name" json:"category_name"`
	SellerUsername string  `db:"seller_username" json:"seller_username"`
	CoverURL       *string `db:"cover_url" json:"cover_url,omitempty"`
}

// SellerSummary агрегированная информация о продавце.
type SellerSummary struct {
	ID            int64   `db:"id" json:"id"`
	Username      string  `db:"username" json:"username"`
	AverageRating float64 `db:"average_rating" json:"average_rating"`
	ReviewCount   int     `db:"review_count" json:"review_count"`
}

// ProductDetail полная карточка объявления.
type ProductDetail struct {
	Product
	CategoryName string         `json:"category_name"`
	Images       []ProductImage `json:"images"`
	Seller       SellerSummary  `json:"seller"`
}

// ProductFilter параметры выборки объявлений.
type ProductFilter struct {
	CategoryID *int64
	SellerID   *int64
	Query      string
	MinPrice   *float64
	MaxPrice   *float64
	// OnlyAvailable по умолчанию true: проданные объявления не показываются.
	OnlyAvailable bool
	Limit         int
	Offset        int
}

// ProductUpdate изменяемые поля объявления. nil означает "не менять".
type ProductUpdate struct {
	CategoryID  *int64
	Name        *string
	Price       *float64
	Condition   *string
	Description *string
	Location    *string
}
