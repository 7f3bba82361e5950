package dto

import "time"

// CreateProductRequest entrada para registrar un producto. InitialStock genera un asiento "in".
type CreateProductRequest struct {
	SKU           string `json:"sku" validate:"required,min=1,max=100"`
	Name          string `json:"name" validate:"required,min=1,max=200"`
	Barcode       string `json:"barcode"`
	InitialStock  int64  `json:"initial_stock" validate:"min=0"`
	MinStockLevel int64  `json:"min_stock_level" validate:"min=0"`
}

// UpdateProductRequest entrada para actualizar un producto (sin stock: se maneja vía ledger).
type UpdateProductRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=200"`
	Barcode       *string `json:"barcode"`
	MinStockLevel *int64  `json:"min_stock_level"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Barcode       string    `json:"barcode,omitempty"`
	CurrentStock  int64     `json:"current_stock"`
	MinStockLevel int64     `json:"min_stock_level"`
	BelowMinimum  bool      `json:"below_minimum"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
