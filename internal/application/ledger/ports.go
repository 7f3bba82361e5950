package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error (o ctx se cancela) la transacción se revierte completa.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		products repository.ProductRepository,
		entries repository.LedgerRepository,
	) error) error
}

// StockMutator aplica un cambio a un único producto. Lo implementa *ApplyChangeUseCase.
type StockMutator interface {
	Apply(ctx context.Context, in ChangeInput) (*ChangeResult, error)
}

// StockChangedEvent se publica después del commit de cada movimiento.
type StockChangedEvent struct {
	EntryID        string    `json:"entry_id"`
	ProductID      string    `json:"product_id"`
	OwnerID        string    `json:"owner_id"`
	SKU            string    `json:"sku"`
	Type           string    `json:"type"`
	Quantity       int64     `json:"quantity"`
	QuantityChange int64     `json:"quantity_change"`
	NewStock       int64     `json:"new_stock"`
	MinStockLevel  int64     `json:"min_stock_level"`
	BelowMinimum   bool      `json:"below_minimum"`
	Reference      string    `json:"reference"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventPublisher publica eventos de cambio de stock hacia un broker.
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, event StockChangedEvent) error
}

// NopPublisher descarta los eventos (EVENTS_BROKER=none).
type NopPublisher struct{}

func (NopPublisher) PublishStockChanged(context.Context, StockChangedEvent) error { return nil }
