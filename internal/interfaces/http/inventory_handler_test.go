package http_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/sqlite"
	apphttp "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
)

type apiFixture struct {
	app   *fiber.App
	db    *sql.DB
	token string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	txRunner := sqlite.NewTxRunner(db)
	productRepo := sqlite.NewProductRepository(db)
	ledgerRepo := sqlite.NewLedgerRepository(db)
	apply := ledger.NewApplyChangeUseCase(txRunner, nil, nil)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ProductUC:   usecase.NewProductUseCase(productRepo, txRunner),
		ApplyChange: apply,
		Batch:       ledger.NewBatchProcessor(productRepo, apply, ledger.BatchConfig{Workers: 4, ItemTimeout: 5 * time.Second}, nil),
		Query:       ledger.NewQueryUseCase(txRunner, ledgerRepo, productRepo),
		JWTSecret:   testJWTSecret,
	})
	return &apiFixture{app: app, db: db, token: tokenForRole(t, "bodeguero")}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", f.token)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *apiFixture) createProduct(t *testing.T, sku, barcode string, stock int64) dto.ProductResponse {
	t.Helper()
	var p dto.ProductResponse
	status := f.do(t, http.MethodPost, "/api/products", dto.CreateProductRequest{
		SKU: sku, Name: "Producto " + sku, Barcode: barcode, InitialStock: stock,
	}, &p)
	require.Equal(t, http.StatusCreated, status)
	return p
}

func TestInventoryAPI_MovementsAndLogs(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "SKU-1", "7701234", 10)

	var out dto.StockChangeResponse
	status := api.do(t, http.MethodPost, "/api/inventory/movements",
		dto.StockChangeRequest{ProductID: p.ID, Type: "out", Quantity: 3}, &out)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(7), out.NewStock)
	assert.NotEmpty(t, out.EntryID)

	var logs dto.LedgerListResponse
	status = api.do(t, http.MethodGet, "/api/inventory/logs?product_id="+p.ID, nil, &logs)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, logs.Items, 2)
	assert.Equal(t, "out", logs.Items[0].Type)
	assert.Equal(t, int64(-3), logs.Items[0].QuantityChange)
	assert.Equal(t, "SKU-1", logs.Items[0].ProductSKU)
	assert.Equal(t, "Initial Stock", logs.Items[1].Reference)
	assert.Equal(t, 50, logs.Page.Limit)

	var rec dto.ReconciliationResponse
	status = api.do(t, http.MethodGet, "/api/inventory/products/"+p.ID+"/reconciliation", nil, &rec)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, rec.Balanced)
	assert.Equal(t, int64(7), rec.LedgerSum)
}

func TestInventoryAPI_InsufficientStockReturns409WithDetails(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "SKU-1", "", 2)

	var errResp dto.ErrorResponse
	status := api.do(t, http.MethodPost, "/api/inventory/movements",
		dto.StockChangeRequest{ProductID: p.ID, Type: "out", Quantity: 5}, &errResp)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
	assert.EqualValues(t, 2, errResp.Details["current"])
	assert.EqualValues(t, 5, errResp.Details["requested"])
}

func TestInventoryAPI_ValidationErrors(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "SKU-1", "", 2)

	var errResp dto.ErrorResponse
	status := api.do(t, http.MethodPost, "/api/inventory/movements",
		dto.StockChangeRequest{ProductID: p.ID, Type: "transfer", Quantity: 1}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_OPERATION_TYPE", errResp.Code)

	status = api.do(t, http.MethodPost, "/api/inventory/movements",
		dto.StockChangeRequest{ProductID: p.ID, Type: "in", Quantity: 0}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUANTITY", errResp.Code)

	status = api.do(t, http.MethodPost, "/api/inventory/movements",
		dto.StockChangeRequest{ProductID: "00000000-0000-0000-0000-00000000dead", Type: "in", Quantity: 1}, &errResp)
	assert.Equal(t, http.StatusNotFound, status)

	status = api.do(t, http.MethodPost, "/api/inventory/batch", dto.BatchRequest{Type: "in"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMPTY_BATCH", errResp.Code)

	status = api.do(t, http.MethodGet, "/api/inventory/logs?from=ayer", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInventoryAPI_BatchPartialFailure(t *testing.T) {
	api := newAPI(t)
	a := api.createProduct(t, "SKU-A", "111", 10)
	b := api.createProduct(t, "SKU-B", "222", 1)

	var res dto.BatchResult
	status := api.do(t, http.MethodPost, "/api/inventory/batch", dto.BatchRequest{
		Type: "out",
		Items: []dto.BatchItemRequest{
			{Barcode: "111", Quantity: 4},
			{LookupKey: "999", Quantity: 1},
			{LookupKey: "SKU-B", Quantity: 3},
		},
	}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 2, res.Failed)

	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, a.ID, res.Results[0].ProductID)
	require.NotNil(t, res.Results[0].ResultingStock)
	assert.Equal(t, int64(6), *res.Results[0].ResultingStock)
	assert.Equal(t, "Product not found", res.Results[1].Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", res.Results[2].Code)

	var got dto.ProductResponse
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/products/"+b.ID, nil, &got))
	assert.Equal(t, int64(1), got.CurrentStock)
}

func TestInventoryAPI_LowStock(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "SKU-1", "", 3)
	minLevel := int64(5)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPut, "/api/products/"+p.ID,
		dto.UpdateProductRequest{MinStockLevel: &minLevel}, nil))

	var body struct {
		Total int                   `json:"total"`
		Items []dto.ProductResponse `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/inventory/low-stock", nil, &body))
	require.Equal(t, 1, body.Total)
	assert.True(t, body.Items[0].BelowMinimum)
}

func TestProductAPI_DeleteRequiresAdmin(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "SKU-1", "", 3)

	var errResp dto.ErrorResponse
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodDelete, "/api/products/"+p.ID, nil, &errResp))

	api.token = tokenForRole(t, "admin")
	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/api/products/"+p.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/products/"+p.ID, nil, &errResp))
}

func TestProductAPI_DuplicateSKU(t *testing.T) {
	api := newAPI(t)
	api.createProduct(t, "SKU-1", "", 0)

	var errResp dto.ErrorResponse
	status := api.do(t, http.MethodPost, "/api/products", dto.CreateProductRequest{SKU: "SKU-1", Name: "otro"}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", errResp.Code)
}

func TestInventoryAPI_RequiresToken(t *testing.T) {
	api := newAPI(t)
	api.token = ""
	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/api/inventory/logs", nil, nil))
}

func TestInventoryAPI_IDsMalformados(t *testing.T) {
	api := newAPI(t)
	api.createProduct(t, "SKU-1", "", 2)

	var errResp dto.ErrorResponse
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/products/abc", nil, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Code)

	errResp = dto.ErrorResponse{}
	status := api.do(t, http.MethodPost, "/api/inventory/movements",
		dto.StockChangeRequest{ProductID: "abc", Type: "in", Quantity: 1}, &errResp)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errResp.Code)

	errResp = dto.ErrorResponse{}
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/inventory/products/abc/reconciliation", nil, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Code)

	errResp = dto.ErrorResponse{}
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/inventory/logs?product_id=abc", nil, &errResp))
	assert.Equal(t, "VALIDATION", errResp.Code)
}

func TestInventoryAPI_EntradaQueDesbordaEsCantidadInvalida(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "SKU-1", "", 1)

	var errResp dto.ErrorResponse
	status := api.do(t, http.MethodPost, "/api/inventory/movements",
		dto.StockChangeRequest{ProductID: p.ID, Type: "in", Quantity: math.MaxInt64}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_QUANTITY", errResp.Code)
}

func TestInventoryAPI_ErrorDeAlmacenamientoEsInternal(t *testing.T) {
	api := newAPI(t)
	p := api.createProduct(t, "SKU-1", "", 1)
	require.NoError(t, api.db.Close())

	var errResp dto.ErrorResponse
	status := api.do(t, http.MethodPost, "/api/inventory/movements",
		dto.StockChangeRequest{ProductID: p.ID, Type: "in", Quantity: 1}, &errResp)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ledger.CodeInternal, errResp.Code)
}
