package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// LedgerFilter compone los filtros de consulta del ledger. Los campos vacíos no filtran.
type LedgerFilter struct {
	OwnerID   string
	ProductID string
	Type      entity.MovementType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// LedgerRepository define el puerto de persistencia para los asientos del ledger.
type LedgerRepository interface {
	// Create inserta el asiento y asigna ID (si viene vacío) y Seq.
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error)
	// Query devuelve asientos del más reciente al más antiguo, con nombre y SKU del producto.
	Query(ctx context.Context, filter LedgerFilter) ([]*entity.LedgerEntryView, error)
	// SumChanges devuelve la suma de quantity_change y la cantidad de asientos del producto.
	SumChanges(ctx context.Context, productID string) (sum int64, count int64, err error)
	// DeleteByProduct solo se usa en el borrado en cascada de un producto.
	DeleteByProduct(ctx context.Context, productID string) error
}
