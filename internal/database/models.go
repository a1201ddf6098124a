package database

import (
	"time"
)

type Category struct {
	ID          int64     `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}

// Product is a catalog entry. CategoryName is filled by joins only.
type Product struct {
	ID           int64     `db:"id"            json:"id"`
	CategoryID   *int64    `db:"category_id"   json:"category_id"`
	CategoryName *string   `db:"category_name" json:"category_name,omitempty"`
	Name         string    `db:"name"          json:"name"`
	Description  string    `db:"description"   json:"description"`
	Price        float64   `db:"price"         json:"price"`
	ImageURL     string    `db:"image_url"     json:"image_url"`
	IsPopular    bool      `db:"is_popular"    json:"is_popular"`
	IsActive     bool      `db:"is_active"     json:"is_active"`
	InStock      bool      `db:"in_stock"      json:"in_stock"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

// ProductFilter selects a page of products. Nil pointers do not filter.
type ProductFilter struct {
	Skip       int
	Limit      int
	CategoryID *int64
	IsPopular  *bool
	Search     string
}

type ProductPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
}

type CartItem struct {
	ID           int64     `db:"id"            json:"id"`
	SessionID    string    `db:"session_id"    json:"session_id"`
	ProductID    int64     `db:"product_id"    json:"product_id"`
	ProductName  string    `db:"product_name"  json:"product_name"`
	ProductImage string    `db:"product_image" json:"product_image"`
	Quantity     int       `db:"quantity"      json:"quantity"`
	SelectedSize string    `db:"selected_size" json:"selected_size"`
	UnitPrice    float64   `db:"unit_price"    json:"unit_price"`
	TotalPrice   float64   `db:"total_price"   json:"total_price"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

type Cart struct {
	Items       []CartItem `json:"items"`
	TotalItems  int        `json:"total_items"`
	TotalAmount float64    `json:"total_amount"`
}

type Order struct {
	ID              int64       `db:"id"               json:"id"`
	OrderNumber     string      `db:"order_number"     json:"order_number"`
	SessionID       string      `db:"session_id"       json:"session_id"`
	Status          string      `db:"status"           json:"status"`
	TotalAmount     float64     `db:"total_amount"     json:"total_amount"`
	TaxAmount       float64     `db:"tax_amount"       json:"tax_amount"`
	DiscountAmount  float64     `db:"discount_amount"  json:"discount_amount"`
	FinalAmount     float64     `db:"final_amount"     json:"final_amount"`
	PaymentStatus   string      `db:"payment_status"   json:"payment_status"`
	PaymentMethod   string      `db:"payment_method"   json:"payment_method"`
	ShippingAddress string      `db:"shipping_address" json:"shipping_address"`
	Notes           string      `db:"notes"            json:"notes"`
	CreatedAt       time.Time   `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"       json:"updated_at"`
	Items           []OrderItem `db:"-"                json:"order_items,omitempty"`
}

type OrderItem struct {
	ID           int64     `db:"id"            json:"id"`
	OrderID      int64     `db:"order_id"      json:"order_id"`
	ProductID    int64     `db:"product_id"    json:"product_id"`
	ProductName  string    `db:"product_name"  json:"product_name"`
	Quantity     int       `db:"quantity"      json:"quantity"`
	UnitPrice    float64   `db:"unit_price"    json:"unit_price"`
	TotalPrice   float64   `db:"total_price"   json:"total_price"`
	SelectedSize string    `db:"selected_size" json:"selected_size"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}

// CheckoutRequest turns a session's cart into an order. Payment is recorded,
// never processed.
type CheckoutRequest struct {
	SessionID       string
	TaxAmount       float64
	DiscountAmount  float64
	PaymentMethod   string
	ShippingAddress string
	Notes           string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        int64     `db:"id"         json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Role      string    `db:"role"       json:"role"`
	Content   string    `db:"content"    json:"content"`
	Intent    string    `db:"intent"     json:"intent,omitempty"`
	Agent     string    `db:"agent"      json:"agent,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DocumentChunk is one embedded slice of a product or document, used by
// vector retrieval. Embedding is stored as little-endian float32s.
type DocumentChunk struct {
	ID        int64     `db:"id"`
	Source    string    `db:"source"`
	Content   string    `db:"content"`
	Embedding []byte    `db:"embedding"`
	CreatedAt time.Time `db:"created_at"`
}
