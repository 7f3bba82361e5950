package entity

import (
	"strings"
	"time"
)

// MovementType es el tipo cerrado de un asiento del ledger.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementIn        MovementType = "in"        // entrada
	MovementOut       MovementType = "out"       // salida
	MovementStocktake MovementType = "stocktake" // conteo físico: la cantidad es el stock observado
)

// ParseMovementType normaliza y valida el tipo recibido en el borde (HTTP, lote).
// Devuelve false para cualquier valor fuera de {in, out, stocktake}.
func ParseMovementType(s string) (MovementType, bool) {
	t := MovementType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid indica si t es uno de los tipos reconocidos.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementStocktake:
		return true
	}
	return false
}

func (t MovementType) String() string { return string(t) }

// LedgerEntry es un asiento inmutable del ledger de cantidades (tabla inventory_logs).
// Quantity es lo reportado por el llamador: delta en in/out, conteo absoluto en stocktake.
// QuantityChange es el delta firmado que realmente se aplicó a CurrentStock.
type LedgerEntry struct {
	ID             string
	Seq            int64 // orden de inserción asignado por el almacenamiento
	ProductID      string
	Type           MovementType
	Quantity       int64
	QuantityChange int64
	StockAfter     int64
	Reference      string
	Notes          string
	CreatedBy      string
	CreatedAt      time.Time
}

// LedgerEntryView asiento con la identidad mínima del producto para reportes.
type LedgerEntryView struct {
	LedgerEntry
	ProductName string
	ProductSKU  string
}
