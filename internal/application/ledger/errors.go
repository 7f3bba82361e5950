package ledger

import (
	"context"
	"errors"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// Códigos de error expuestos a los llamadores (HTTP y resultados por ítem del lote).
const (
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeInvalidOperation  = "INVALID_OPERATION_TYPE"
	CodeEmptyBatch        = "EMPTY_BATCH"
	CodeValidation        = "VALIDATION"
	CodeDuplicate         = "DUPLICATE"
	CodeTimeout           = "TIMEOUT"
	CodeInternal          = "INTERNAL"
)

// MsgProductNotFound mensaje para claves de búsqueda que no resuelven a ningún producto.
const MsgProductNotFound = "Product not found"

// ErrorCode clasifica un error del ledger en un código estable.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, domain.ErrInvalidQuantity):
		return CodeInvalidQuantity
	case errors.Is(err, domain.ErrInvalidOperationType):
		return CodeInvalidOperation
	case errors.Is(err, domain.ErrEmptyBatch):
		return CodeEmptyBatch
	case errors.Is(err, domain.ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, domain.ErrDuplicate):
		return CodeDuplicate
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CodeTimeout
	default:
		return CodeInternal
	}
}
