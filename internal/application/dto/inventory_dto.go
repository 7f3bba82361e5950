package dto

import "time"

// StockChangeRequest body para POST /api/inventory/movements.
type StockChangeRequest struct {
	ProductID string `json:"product_id"`
	Type      string `json:"type"` // in | out | stocktake
	Quantity  int64  `json:"quantity"`
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// StockChangeResponse resultado de un movimiento individual.
type StockChangeResponse struct {
	ProductID string `json:"product_id"`
	NewStock  int64  `json:"new_stock"`
	EntryID   string `json:"entry_id"`
}

// BatchItemRequest un ítem escaneado (lookup_key suele ser el código de barras).
type BatchItemRequest struct {
	LookupKey string `json:"lookup_key"`
	Barcode   string `json:"barcode,omitempty"` // alias de lookup_key enviado por los lectores
	Quantity  int64  `json:"quantity"`
}

// Key devuelve la clave de búsqueda efectiva del ítem.
func (r BatchItemRequest) Key() string {
	if r.LookupKey != "" {
		return r.LookupKey
	}
	return r.Barcode
}

// BatchRequest body para POST /api/inventory/batch.
type BatchRequest struct {
	Type      string             `json:"type"`
	Reference string             `json:"reference,omitempty"`
	Notes     string             `json:"notes,omitempty"`
	Items     []BatchItemRequest `json:"items"`
}

// BatchItemResult resultado de un ítem del lote. Error solo viene cuando Success es false.
type BatchItemResult struct {
	LookupKey      string `json:"lookup_key"`
	ProductID      string `json:"product_id,omitempty"`
	Success        bool   `json:"success"`
	ResultingStock *int64 `json:"resulting_stock,omitempty"`
	EntryID        string `json:"entry_id,omitempty"`
	Error          string `json:"error,omitempty"`
	Code           string `json:"code,omitempty"`
}

// BatchResult resumen del lote: Succeeded + Failed == Total == len(Results).
type BatchResult struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

// LedgerQueryRequest parámetros de GET /api/inventory/logs.
type LedgerQueryRequest struct {
	ProductID string `query:"product_id"`
	Type      string `query:"type"`
	From      string `query:"from"` // RFC3339 o YYYY-MM-DD
	To        string `query:"to"`
	Limit     int    `query:"limit"`
	Offset    int    `query:"offset"`
}

// LedgerEntryResponse asiento del ledger con identidad mínima del producto.
type LedgerEntryResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	ProductName    string    `json:"product_name"`
	ProductSKU     string    `json:"product_sku"`
	Type           string    `json:"type"`
	Quantity       int64     `json:"quantity"`
	QuantityChange int64     `json:"quantity_change"`
	StockAfter     int64     `json:"stock_after"`
	Reference      string    `json:"reference"`
	Notes          string    `json:"notes"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// LedgerListResponse lista paginada de asientos.
type LedgerListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// ReconciliationResponse comparación entre el stock materializado y la suma del ledger.
type ReconciliationResponse struct {
	ProductID    string `json:"product_id"`
	CurrentStock int64  `json:"current_stock"`
	LedgerSum    int64  `json:"ledger_sum"`
	EntryCount   int64  `json:"entry_count"`
	Difference   int64  `json:"difference"`
	Balanced     bool   `json:"balanced"`
}
