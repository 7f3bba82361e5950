package ledger

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// DefaultBatchReference referencia por defecto de los lotes escaneados.
const DefaultBatchReference = "barcode-scanner"

// BatchItem un ítem identificado por clave externa (código de barras o SKU).
type BatchItem struct {
	LookupKey string
	Quantity  int64
}

// BatchInput lote homogéneo: todos los ítems comparten tipo, referencia, notas y actor.
type BatchInput struct {
	OwnerID   string
	ActorID   string
	Type      entity.MovementType
	Reference string
	Notes     string
	Items     []BatchItem
}

// BatchConfig concurrencia y timeout por ítem.
type BatchConfig struct {
	Workers     int
	ItemTimeout time.Duration
}

// BatchProcessor aplica un lote de cambios escaneados aislando el fallo de cada ítem.
// Cada ítem es su propia transacción; los ítems del mismo producto se aplican en secuencia.
type BatchProcessor struct {
	products repository.ProductRepository
	mutator  StockMutator
	cfg      BatchConfig
	log      *logger.Logger
	tracer   trace.Tracer
}

// NewBatchProcessor construye el procesador. products debe estar atado al pool (lectura masiva).
func NewBatchProcessor(products repository.ProductRepository, mutator StockMutator, cfg BatchConfig, log *logger.Logger) *BatchProcessor {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BatchProcessor{
		products: products,
		mutator:  mutator,
		cfg:      cfg,
		log:      log.Component("ledger.batch"),
		tracer:   otel.Tracer(tracerName),
	}
}

// ProcessBatchFromRequest adapta el request HTTP al lote.
func (p *BatchProcessor) ProcessBatchFromRequest(ctx context.Context, ownerID, actorID string, in dto.BatchRequest) (*dto.BatchResult, error) {
	t, ok := entity.ParseMovementType(in.Type)
	if !ok {
		return nil, domain.ErrInvalidOperationType
	}
	items := make([]BatchItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, BatchItem{LookupKey: it.Key(), Quantity: it.Quantity})
	}
	return p.ProcessBatch(ctx, BatchInput{
		OwnerID:   ownerID,
		ActorID:   actorID,
		Type:      t,
		Reference: in.Reference,
		Notes:     in.Notes,
		Items:     items,
	})
}

// ProcessBatch solo falla completo si la entrada es inválida o si falla la lectura masiva de productos.
// Los fallos por ítem se reportan en el resultado.
func (p *BatchProcessor) ProcessBatch(ctx context.Context, in BatchInput) (*dto.BatchResult, error) {
	ctx, span := p.tracer.Start(ctx, "ledger.ProcessBatch", trace.WithAttributes(
		attribute.String("movement.type", in.Type.String()),
		attribute.Int("batch.size", len(in.Items)),
	))
	defer span.End()

	res, err := p.process(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("batch.succeeded", res.Succeeded),
		attribute.Int("batch.failed", res.Failed),
	)
	return res, nil
}

func (p *BatchProcessor) process(ctx context.Context, in BatchInput) (*dto.BatchResult, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if !in.Type.Valid() {
		return nil, domain.ErrInvalidOperationType
	}
	if in.OwnerID == "" || in.ActorID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Reference == "" {
		in.Reference = DefaultBatchReference
	}

	// 1. Una sola lectura masiva e índice en memoria por clave externa.
	list, err := p.products.ListByOwner(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}
	index := newLookupIndex(list)

	// 2. Resolver y agrupar por producto; los grupos preservan el orden de entrada.
	results := make([]dto.BatchItemResult, len(in.Items))
	groups := make(map[string][]int)
	var order []string
	for i, item := range in.Items {
		results[i].LookupKey = item.LookupKey
		product := index.resolve(item.LookupKey)
		if product == nil {
			results[i].Error = MsgProductNotFound
			results[i].Code = CodeProductNotFound
			continue
		}
		if _, seen := groups[product.ID]; !seen {
			order = append(order, product.ID)
		}
		groups[product.ID] = append(groups[product.ID], i)
	}

	// 3. Grupos en paralelo (productos distintos), ítems de un grupo en secuencia.
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for _, productID := range order {
		productID := productID
		idxs := groups[productID]
		g.Go(func() error {
			for _, i := range idxs {
				results[i] = p.processItem(ctx, in, productID, in.Items[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	// 4. Agregado.
	out := &dto.BatchResult{Total: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	p.log.Info().
		Str("owner_id", in.OwnerID).
		Str("type", in.Type.String()).
		Int("total", out.Total).
		Int("succeeded", out.Succeeded).
		Int("failed", out.Failed).
		Msg("lote procesado")
	return out, nil
}

// processItem ejecuta un ítem con su propio timeout; un timeout solo afecta a este ítem.
func (p *BatchProcessor) processItem(ctx context.Context, in BatchInput, productID string, item BatchItem) dto.BatchItemResult {
	if p.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ItemTimeout)
		defer cancel()
	}
	res, err := p.mutator.Apply(ctx, ChangeInput{
		ProductID: productID,
		OwnerID:   in.OwnerID,
		Type:      in.Type,
		Quantity:  item.Quantity,
		Reference: in.Reference,
		Notes:     in.Notes,
		ActorID:   in.ActorID,
	})
	if err != nil {
		p.log.Debug().Err(err).
			Str("lookup_key", item.LookupKey).
			Str("product_id", productID).
			Msg("ítem del lote rechazado")
		return dto.BatchItemResult{
			LookupKey: item.LookupKey,
			Error:     err.Error(),
			Code:      ErrorCode(err),
		}
	}
	stock := res.NewStock
	return dto.BatchItemResult{
		LookupKey:      item.LookupKey,
		ProductID:      res.ProductID,
		Success:        true,
		ResultingStock: &stock,
		EntryID:        res.EntryID,
	}
}

// lookupIndex resuelve claves externas a productos: primero código de barras, luego SKU.
// Ante claves duplicadas gana el primer producto del listado.
type lookupIndex struct {
	byBarcode map[string]*entity.Product
	bySKU     map[string]*entity.Product
}

func newLookupIndex(products []*entity.Product) *lookupIndex {
	ix := &lookupIndex{
		byBarcode: make(map[string]*entity.Product, len(products)),
		bySKU:     make(map[string]*entity.Product, len(products)),
	}
	for _, p := range products {
		if p.Barcode != "" {
			if _, ok := ix.byBarcode[p.Barcode]; !ok {
				ix.byBarcode[p.Barcode] = p
			}
		}
		if p.SKU != "" {
			if _, ok := ix.bySKU[p.SKU]; !ok {
				ix.bySKU[p.SKU] = p
			}
		}
	}
	return ix
}

func (ix *lookupIndex) resolve(key string) *entity.Product {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if p, ok := ix.byBarcode[key]; ok {
		return p
	}
	return ix.bySKU[key]
}
