package inventory

import (
	"math"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ValidateQuantity aplica las reglas de cantidad por tipo (servicio de dominio).
// in/out exigen cantidad > 0; stocktake acepta 0 porque es el conteo observado.
func ValidateQuantity(t entity.MovementType, quantity int64) error {
	switch t {
	case entity.MovementIn, entity.MovementOut:
		if quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	case entity.MovementStocktake:
		if quantity < 0 {
			return domain.ErrInvalidQuantity
		}
	default:
		return domain.ErrInvalidOperationType
	}
	return nil
}

// ComputeChange calcula el nuevo stock y el delta firmado a registrar.
//
//	in:        nuevo = actual + cantidad,  delta = +cantidad
//	out:       nuevo = actual - cantidad,  delta = -cantidad (requiere actual >= cantidad)
//	stocktake: nuevo = cantidad,           delta = cantidad - actual
//
// Una entrada que desbordaría int64 se rechaza con ErrInvalidQuantity.
func ComputeChange(t entity.MovementType, current, quantity int64) (newStock, change int64, err error) {
	if err := ValidateQuantity(t, quantity); err != nil {
		return current, 0, err
	}
	switch t {
	case entity.MovementIn:
		if quantity > math.MaxInt64-current {
			return current, 0, domain.ErrInvalidQuantity
		}
		return current + quantity, quantity, nil
	case entity.MovementOut:
		if current < quantity {
			return current, 0, &domain.InsufficientStockError{Current: current, Requested: quantity}
		}
		return current - quantity, -quantity, nil
	default:
		return quantity, quantity - current, nil
	}
}
