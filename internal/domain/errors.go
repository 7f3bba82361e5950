package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// Variantes de ErrInvalidInput: errors.Is(err, ErrInvalidInput) sigue siendo verdadero.
	ErrInvalidQuantity      = fmt.Errorf("%w: cantidad inválida", ErrInvalidInput)
	ErrInvalidOperationType = fmt.Errorf("%w: tipo de operación inválido", ErrInvalidInput)
	ErrEmptyBatch           = fmt.Errorf("%w: el lote no tiene ítems", ErrInvalidInput)

	ErrInsufficientStock = errors.New("stock insuficiente")
)

// InsufficientStockError indica que una salida dejaría el stock en negativo.
// Lleva el stock actual y la cantidad pedida para que el llamador pueda reportarlos.
type InsufficientStockError struct {
	ProductID string
	Current   int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: disponible %d, solicitado %d", e.Current, e.Requested)
}

// Unwrap permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
