package ledger

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Límites de paginación del ledger.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// QueryUseCase consultas de solo lectura sobre el ledger.
type QueryUseCase struct {
	txRunner TxRunner
	entries  repository.LedgerRepository
	products repository.ProductRepository
	tracer   trace.Tracer
}

// NewQueryUseCase construye el caso de uso. Las consultas usan los repositorios del pool;
// la conciliación lee stock y ledger dentro de una transacción de txRunner.
func NewQueryUseCase(txRunner TxRunner, entries repository.LedgerRepository, products repository.ProductRepository) *QueryUseCase {
	return &QueryUseCase{txRunner: txRunner, entries: entries, products: products, tracer: otel.Tracer(tracerName)}
}

// Query devuelve los asientos filtrados, del más reciente al más antiguo.
func (uc *QueryUseCase) Query(ctx context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntryView, error) {
	ctx, span := uc.tracer.Start(ctx, "ledger.Query", trace.WithAttributes(
		attribute.String("product.id", f.ProductID),
		attribute.String("movement.type", f.Type.String()),
	))
	defer span.End()

	if f.OwnerID == "" {
		return nil, domain.ErrInvalidInput
	}
	if f.ProductID != "" {
		if _, err := uuid.Parse(f.ProductID); err != nil {
			return nil, domain.ErrInvalidInput
		}
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, domain.ErrInvalidOperationType
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, domain.ErrInvalidInput
	}
	f.Limit, f.Offset = NormalizePage(f.Limit, f.Offset)
	return uc.entries.Query(ctx, f)
}

// NormalizePage aplica el límite por defecto y el máximo.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Reconciliation compara CurrentStock con la suma de quantity_change del ledger.
type Reconciliation struct {
	ProductID    string
	CurrentStock int64
	LedgerSum    int64
	EntryCount   int64
	Difference   int64 // CurrentStock - LedgerSum
	Balanced     bool
}

// Reconcile verifica la identidad stock == Σ quantity_change para un producto.
// Stock y suma se leen en la misma transacción, con la fila del producto bloqueada.
func (uc *QueryUseCase) Reconcile(ctx context.Context, ownerID, productID string) (*Reconciliation, error) {
	ctx, span := uc.tracer.Start(ctx, "ledger.Reconcile", trace.WithAttributes(attribute.String("product.id", productID)))
	defer span.End()

	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	var rec *Reconciliation
	err := uc.txRunner.Run(ctx, func(products repository.ProductRepository, entries repository.LedgerRepository) error {
		p, err := products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if ownerID != "" && p.OwnerID != ownerID {
			return domain.ErrForbidden
		}
		sum, count, err := entries.SumChanges(ctx, productID)
		if err != nil {
			return err
		}
		diff := p.CurrentStock - sum
		rec = &Reconciliation{
			ProductID:    p.ID,
			CurrentStock: p.CurrentStock,
			LedgerSum:    sum,
			EntryCount:   count,
			Difference:   diff,
			Balanced:     diff == 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
