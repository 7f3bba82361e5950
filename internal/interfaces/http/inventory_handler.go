package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// InventoryHandler maneja movimientos, lotes escaneados y consultas del ledger (protegido).
type InventoryHandler struct {
	apply    *ledger.ApplyChangeUseCase
	batch    *ledger.BatchProcessor
	query    *ledger.QueryUseCase
	products *usecase.ProductUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(apply *ledger.ApplyChangeUseCase, batch *ledger.BatchProcessor, query *ledger.QueryUseCase, products *usecase.ProductUseCase) *InventoryHandler {
	return &InventoryHandler{apply: apply, batch: batch, query: query, products: products}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockChangeRequest  true  "product_id, type (in|out|stocktake), quantity"
// @Success      201   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	ownerID, userID := GetOwnerID(c), GetUserID(c)
	if ownerID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.StockChangeRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.apply.ApplyFromRequest(c.UserContext(), ownerID, userID, in)
	if err != nil {
		return writeError(c, err, "producto no encontrado")
	}
	return c.Status(fiber.StatusCreated).JSON(dto.StockChangeResponse{
		ProductID: res.ProductID,
		NewStock:  res.NewStock,
		EntryID:   res.EntryID,
	})
}

// ProcessBatch godoc
// @Summary      Aplicar lote escaneado
// @Description  Cada ítem se aplica en su propia transacción; los fallos parciales responden 200 con el detalle por ítem.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchRequest  true  "type, items[{lookup_key|barcode, quantity}]"
// @Success      200   {object}  dto.BatchResult
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/batch [post]
func (h *InventoryHandler) ProcessBatch(c *fiber.Ctx) error {
	ownerID, userID := GetOwnerID(c), GetUserID(c)
	if ownerID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.BatchRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.batch.ProcessBatchFromRequest(c.UserContext(), ownerID, userID, in)
	if err != nil {
		return writeError(c, err, "recurso no encontrado")
	}
	return c.JSON(res)
}

// ListLogs godoc
// @Summary      Consultar el ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        type        query  string  false  "in | out | stocktake"
// @Param        from        query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to          query  string  false  "RFC3339 o YYYY-MM-DD (inclusive)"
// @Param        limit       query  int     false  "Límite"  default(50)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.LedgerListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/logs [get]
func (h *InventoryHandler) ListLogs(c *fiber.Ctx) error {
	ownerID := GetOwnerID(c)
	if ownerID == "" {
		return unauthorized(c)
	}
	var q dto.LedgerQueryRequest
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parámetros inválidos"})
	}
	filter, ok := toLedgerFilter(ownerID, q)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from/to deben ser RFC3339 o YYYY-MM-DD"})
	}
	list, err := h.query.Query(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err, "recurso no encontrado")
	}
	limit, offset := ledger.NormalizePage(filter.Limit, filter.Offset)
	items := make([]dto.LedgerEntryResponse, 0, len(list))
	for _, v := range list {
		items = append(items, dto.LedgerEntryResponse{
			ID:             v.ID,
			ProductID:      v.ProductID,
			ProductName:    v.ProductName,
			ProductSKU:     v.ProductSKU,
			Type:           v.Type.String(),
			Quantity:       v.Quantity,
			QuantityChange: v.QuantityChange,
			StockAfter:     v.StockAfter,
			Reference:      v.Reference,
			Notes:          v.Notes,
			CreatedBy:      v.CreatedBy,
			CreatedAt:      v.CreatedAt,
		})
	}
	return c.JSON(dto.LedgerListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}})
}

// Reconcile godoc
// @Summary      Conciliar stock contra el ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ReconciliationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/reconciliation [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	ownerID := GetOwnerID(c)
	if ownerID == "" {
		return unauthorized(c)
	}
	rec, err := h.query.Reconcile(c.UserContext(), ownerID, c.Params("id"))
	if err != nil {
		return writeError(c, err, "producto no encontrado")
	}
	return c.JSON(dto.ReconciliationResponse{
		ProductID:    rec.ProductID,
		CurrentStock: rec.CurrentStock,
		LedgerSum:    rec.LedgerSum,
		EntryCount:   rec.EntryCount,
		Difference:   rec.Difference,
		Balanced:     rec.Balanced,
	})
}

// LowStock godoc
// @Summary      Productos en o por debajo del stock mínimo
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ProductResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *fiber.Ctx) error {
	ownerID := GetOwnerID(c)
	if ownerID == "" {
		return unauthorized(c)
	}
	list, err := h.products.ListLowStock(c.UserContext(), ownerID)
	if err != nil {
		return writeError(c, err, "recurso no encontrado")
	}
	return c.JSON(fiber.Map{"total": len(list), "items": list})
}

func toLedgerFilter(ownerID string, q dto.LedgerQueryRequest) (repository.LedgerFilter, bool) {
	f := repository.LedgerFilter{
		OwnerID:   ownerID,
		ProductID: strings.TrimSpace(q.ProductID),
		Type:      entity.MovementType(strings.ToLower(strings.TrimSpace(q.Type))),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.From != "" {
		t, _, ok := parseTime(q.From)
		if !ok {
			return f, false
		}
		f.From = &t
	}
	if q.To != "" {
		t, dateOnly, ok := parseTime(q.To)
		if !ok {
			return f, false
		}
		if dateOnly {
			// "to" de solo fecha incluye el día completo
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}
	return f, true
}

func parseTime(s string) (t time.Time, dateOnly, ok bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), true, true
	}
	return time.Time{}, false, false
}
