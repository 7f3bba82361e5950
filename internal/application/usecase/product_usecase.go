package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// InitialStockReference referencia del asiento que siembra el stock inicial.
const InitialStockReference = "Initial Stock"

// ProductUseCase ciclo de vida de productos. El stock solo cambia vía ledger.
type ProductUseCase struct {
	repo     repository.ProductRepository
	txRunner ledger.TxRunner
}

// NewProductUseCase construye el caso de uso. repo debe estar atado al pool.
func NewProductUseCase(repo repository.ProductRepository, txRunner ledger.TxRunner) *ProductUseCase {
	return &ProductUseCase{repo: repo, txRunner: txRunner}
}

// Create registra un producto. Si InitialStock > 0 se inserta en la misma transacción
// un asiento "in" para que stock == Σ quantity_change desde el primer momento.
func (uc *ProductUseCase) Create(ctx context.Context, ownerID, actorID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	in.Barcode = strings.TrimSpace(in.Barcode)
	if ownerID == "" || actorID == "" || in.SKU == "" || in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.InitialStock < 0 || in.MinStockLevel < 0 {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetByOwnerAndSKU(ctx, ownerID, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now().UTC()
	product := &entity.Product{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		SKU:           in.SKU,
		Name:          in.Name,
		Barcode:       in.Barcode,
		CurrentStock:  in.InitialStock,
		MinStockLevel: in.MinStockLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = uc.txRunner.Run(ctx, func(products repository.ProductRepository, entries repository.LedgerRepository) error {
		if err := products.Create(ctx, product); err != nil {
			return err
		}
		if in.InitialStock == 0 {
			return nil
		}
		return entries.Create(ctx, &entity.LedgerEntry{
			ID:             uuid.New().String(),
			ProductID:      product.ID,
			Type:           entity.MovementIn,
			Quantity:       in.InitialStock,
			QuantityChange: in.InitialStock,
			StockAfter:     in.InitialStock,
			Reference:      InitialStockReference,
			CreatedBy:      actorID,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto del owner. Devuelve (nil, nil) si no existe o es de otro owner.
func (uc *ProductUseCase) GetByID(ctx context.Context, ownerID, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.OwnerID != ownerID {
		return nil, nil
	}
	return toProductResponse(product), nil
}

// UpdateDetails actualiza nombre, código de barras y umbral mínimo. No toca el stock.
func (uc *ProductUseCase) UpdateDetails(ctx context.Context, ownerID, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		product.Name = name
	}
	if in.Barcode != nil {
		product.Barcode = strings.TrimSpace(*in.Barcode)
	}
	if in.MinStockLevel != nil {
		if *in.MinStockLevel < 0 {
			return nil, domain.ErrInvalidInput
		}
		product.MinStockLevel = *in.MinStockLevel
	}
	product.UpdatedAt = time.Now().UTC()
	if err := uc.repo.UpdateDetails(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos del owner con paginación.
func (uc *ProductUseCase) List(ctx context.Context, ownerID string, limit, offset int) (*dto.ProductListResponse, error) {
	list, err := uc.repo.ListPage(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &dto.ProductListResponse{
		Items: toProductResponses(list),
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// ListLowStock productos con stock en o por debajo de su mínimo configurado.
func (uc *ProductUseCase) ListLowStock(ctx context.Context, ownerID string) ([]dto.ProductResponse, error) {
	list, err := uc.repo.ListLowStock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return toProductResponses(list), nil
}

// Delete elimina el producto y sus asientos (primero los asientos) en una sola transacción.
func (uc *ProductUseCase) Delete(ctx context.Context, ownerID, id string) error {
	return uc.txRunner.Run(ctx, func(products repository.ProductRepository, entries repository.LedgerRepository) error {
		product, err := products.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if product == nil || product.OwnerID != ownerID {
			return domain.ErrNotFound
		}
		if err := entries.DeleteByProduct(ctx, id); err != nil {
			return err
		}
		return products.Delete(ctx, id)
	})
}

func toProductResponses(list []*entity.Product) []dto.ProductResponse {
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return items
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		SKU:           p.SKU,
		Name:          p.Name,
		Barcode:       p.Barcode,
		CurrentStock:  p.CurrentStock,
		MinStockLevel: p.MinStockLevel,
		BelowMinimum:  p.BelowMinimum(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
