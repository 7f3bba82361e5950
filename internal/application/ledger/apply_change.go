package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

const tracerName = "github.com/jhoicas/inventario-ledger/internal/application/ledger"

// Referencia por defecto cuando el llamador no envía una.
const DefaultManualReference = "Manual Adjustment"

// ChangeInput entrada para aplicar un movimiento a un producto.
// OwnerID es opcional: si viene, el producto debe pertenecer a ese owner.
type ChangeInput struct {
	ProductID string
	OwnerID   string
	Type      entity.MovementType
	Quantity  int64
	Reference string
	Notes     string
	ActorID   string
}

// ChangeResult resultado de un movimiento confirmado.
type ChangeResult struct {
	ProductID string
	NewStock  int64
	EntryID   string
}

// ApplyChangeUseCase es el mutador de stock de un solo ítem: bloquea la fila del producto
// (SELECT FOR UPDATE), calcula el nuevo stock, actualiza el producto e inserta el asiento,
// todo en una transacción. Nunca reintenta; los errores de almacenamiento suben tal cual.
type ApplyChangeUseCase struct {
	txRunner  TxRunner
	publisher EventPublisher
	log       *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewApplyChangeUseCase construye el caso de uso. publisher y log pueden ser nil.
func NewApplyChangeUseCase(txRunner TxRunner, publisher EventPublisher, log *logger.Logger) *ApplyChangeUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ApplyChangeUseCase{
		txRunner:  txRunner,
		publisher: publisher,
		log:       log.Component("ledger.apply"),
		tracer:    otel.Tracer(tracerName),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ StockMutator = (*ApplyChangeUseCase)(nil)

// ApplyFromRequest adapta el request HTTP al caso de uso Apply.
func (uc *ApplyChangeUseCase) ApplyFromRequest(ctx context.Context, ownerID, actorID string, in dto.StockChangeRequest) (*ChangeResult, error) {
	t, ok := entity.ParseMovementType(in.Type)
	if !ok {
		return nil, domain.ErrInvalidOperationType
	}
	return uc.Apply(ctx, ChangeInput{
		ProductID: in.ProductID,
		OwnerID:   ownerID,
		Type:      t,
		Quantity:  in.Quantity,
		Reference: in.Reference,
		Notes:     in.Notes,
		ActorID:   actorID,
	})
}

// Apply aplica exactamente un cambio a exactamente un producto.
func (uc *ApplyChangeUseCase) Apply(ctx context.Context, in ChangeInput) (*ChangeResult, error) {
	ctx, span := uc.tracer.Start(ctx, "ledger.Apply", trace.WithAttributes(
		attribute.String("product.id", in.ProductID),
		attribute.String("movement.type", in.Type.String()),
		attribute.Int64("movement.quantity", in.Quantity),
	))
	defer span.End()

	res, err := uc.apply(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("stock.new", res.NewStock))
	return res, nil
}

func (uc *ApplyChangeUseCase) apply(ctx context.Context, in ChangeInput) (*ChangeResult, error) {
	if in.ProductID == "" || in.ActorID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !in.Type.Valid() {
		return nil, domain.ErrInvalidOperationType
	}
	if err := inventory.ValidateQuantity(in.Type, in.Quantity); err != nil {
		return nil, err
	}
	if in.Reference == "" {
		in.Reference = DefaultManualReference
	}

	var (
		product *entity.Product
		entry   *entity.LedgerEntry
	)
	// Commit si todo ok, Rollback si algo falla (TxRunner.Run lo hace)
	err := uc.txRunner.Run(ctx, func(products repository.ProductRepository, entries repository.LedgerRepository) error {
		p, err := products.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if in.OwnerID != "" && p.OwnerID != in.OwnerID {
			return domain.ErrForbidden
		}

		newStock, change, err := inventory.ComputeChange(in.Type, p.CurrentStock, in.Quantity)
		if err != nil {
			var ise *domain.InsufficientStockError
			if errors.As(err, &ise) {
				ise.ProductID = p.ID
			}
			return err
		}
		if err := products.UpdateStock(ctx, p.ID, newStock); err != nil {
			return err
		}

		e := &entity.LedgerEntry{
			ID:             uuid.New().String(),
			ProductID:      p.ID,
			Type:           in.Type,
			Quantity:       in.Quantity,
			QuantityChange: change,
			StockAfter:     newStock,
			Reference:      in.Reference,
			Notes:          in.Notes,
			CreatedBy:      in.ActorID,
			CreatedAt:      uc.now(),
		}
		if err := entries.Create(ctx, e); err != nil {
			return err
		}
		p.CurrentStock = newStock
		product, entry = p, e
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, product, entry)
	return &ChangeResult{ProductID: product.ID, NewStock: product.CurrentStock, EntryID: entry.ID}, nil
}

// publish notifica el cambio ya confirmado; un fallo del broker no revierte el movimiento.
func (uc *ApplyChangeUseCase) publish(ctx context.Context, p *entity.Product, e *entity.LedgerEntry) {
	event := StockChangedEvent{
		EntryID:        e.ID,
		ProductID:      p.ID,
		OwnerID:        p.OwnerID,
		SKU:            p.SKU,
		Type:           e.Type.String(),
		Quantity:       e.Quantity,
		QuantityChange: e.QuantityChange,
		NewStock:       p.CurrentStock,
		MinStockLevel:  p.MinStockLevel,
		BelowMinimum:   p.BelowMinimum(),
		Reference:      e.Reference,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
	}
	if err := uc.publisher.PublishStockChanged(ctx, event); err != nil {
		uc.log.Warn().Err(err).
			Str("product_id", p.ID).
			Str("entry_id", e.ID).
			Msg("no se pudo publicar el evento de stock")
	}
	if event.BelowMinimum {
		uc.log.Info().
			Str("product_id", p.ID).
			Int64("stock", p.CurrentStock).
			Int64("min_stock_level", p.MinStockLevel).
			Msg("producto en o por debajo del stock mínimo")
	}
}
