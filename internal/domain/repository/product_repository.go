package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Las implementaciones se pueden atar al pool o a una transacción.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID devuelve (nil, nil) si el producto no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByOwnerAndSKU(ctx context.Context, ownerID, sku string) (*entity.Product, error)
	// GetForUpdate lee el producto y bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// ListByOwner trae todos los productos del owner (resolución de lotes).
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Product, error)
	ListPage(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Product, error)
	ListLowStock(ctx context.Context, ownerID string) ([]*entity.Product, error)
	// UpdateDetails actualiza nombre, código de barras y umbral; nunca el stock.
	UpdateDetails(ctx context.Context, product *entity.Product) error
	UpdateStock(ctx context.Context, id string, newStock int64) error
	Delete(ctx context.Context, id string) error
}
