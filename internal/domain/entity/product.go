package entity

import "time"

// Product es el registro de stock de un producto.
// CurrentStock solo cambia a través del ledger; MinStockLevel es un umbral informativo, no un piso.
type Product struct {
	ID            string
	OwnerID       string
	SKU           string // único por owner
	Name          string
	Barcode       string // clave de búsqueda externa (opcional)
	CurrentStock  int64
	MinStockLevel int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BelowMinimum indica si el stock está en o por debajo del umbral configurado.
func (p *Product) BelowMinimum() bool {
	return p.MinStockLevel > 0 && p.CurrentStock <= p.MinStockLevel
}
