package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

func openTestDB(t *testing.T) *TxRunner {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTxRunner(db)
}

func seedProduct(t *testing.T, runner *TxRunner, owner, sku, barcode string, stock int64) *entity.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &entity.Product{
		ID: uuid.New().String(), OwnerID: owner, SKU: sku, Name: "Producto " + sku,
		Barcode: barcode, CurrentStock: stock, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewProductRepository(runner.db).Create(context.Background(), p))
	return p
}

func TestProductRepo_CreateAndGet(t *testing.T) {
	runner := openTestDB(t)
	ctx := context.Background()
	repo := NewProductRepository(runner.db)

	p := seedProduct(t, runner, "owner-1", "SKU-1", "7701", 5)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SKU-1", got.SKU)
	assert.Equal(t, "7701", got.Barcode)
	assert.Equal(t, int64(5), got.CurrentStock)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Microsecond)

	missing, err := repo.GetByID(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, missing)

	bySKU, err := repo.GetByOwnerAndSKU(ctx, "owner-1", "SKU-1")
	require.NoError(t, err)
	require.NotNil(t, bySKU)
	assert.Equal(t, p.ID, bySKU.ID)
}

func TestProductRepo_DuplicateSKU(t *testing.T) {
	runner := openTestDB(t)
	seedProduct(t, runner, "owner-1", "SKU-1", "", 0)

	now := time.Now().UTC()
	err := NewProductRepository(runner.db).Create(context.Background(), &entity.Product{
		ID: uuid.New().String(), OwnerID: "owner-1", SKU: "SKU-1", Name: "otro", CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestProductRepo_UpdateStockRejectsNegative(t *testing.T) {
	runner := openTestDB(t)
	p := seedProduct(t, runner, "owner-1", "SKU-1", "", 2)

	err := NewProductRepository(runner.db).UpdateStock(context.Background(), p.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	err = NewProductRepository(runner.db).UpdateStock(context.Background(), uuid.New().String(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepo_ListLowStock(t *testing.T) {
	runner := openTestDB(t)
	ctx := context.Background()
	repo := NewProductRepository(runner.db)

	low := seedProduct(t, runner, "owner-1", "LOW", "", 2)
	low.MinStockLevel = 5
	low.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateDetails(ctx, low))

	ok := seedProduct(t, runner, "owner-1", "OK", "", 20)
	ok.MinStockLevel = 5
	ok.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateDetails(ctx, ok))

	seedProduct(t, runner, "owner-1", "NOMIN", "", 0)

	list, err := repo.ListLowStock(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "LOW", list[0].SKU)
}

func TestTxRunner_RollbackOnError(t *testing.T) {
	runner := openTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, runner, "owner-1", "SKU-1", "", 10)
	boom := errors.New("boom")

	err := runner.Run(ctx, func(products repository.ProductRepository, entries repository.LedgerRepository) error {
		if err := products.UpdateStock(ctx, p.ID, 3); err != nil {
			return err
		}
		if err := entries.Create(ctx, &entity.LedgerEntry{
			ProductID: p.ID, Type: entity.MovementOut, Quantity: 7, QuantityChange: -7,
			StockAfter: 3, CreatedBy: "actor", CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := NewProductRepository(runner.db).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.CurrentStock)

	_, count, err := NewLedgerRepository(runner.db).SumChanges(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLedgerRepo_QueryFiltersAndOrder(t *testing.T) {
	runner := openTestDB(t)
	ctx := context.Background()
	a := seedProduct(t, runner, "owner-1", "A", "", 0)
	b := seedProduct(t, runner, "owner-1", "B", "", 0)
	other := seedProduct(t, runner, "owner-2", "X", "", 0)
	repo := NewLedgerRepository(runner.db)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	add := func(p *entity.Product, typ entity.MovementType, qty int64, at time.Time) *entity.LedgerEntry {
		e := &entity.LedgerEntry{
			ProductID: p.ID, Type: typ, Quantity: qty, QuantityChange: qty,
			StockAfter: qty, CreatedBy: "actor", CreatedAt: at,
		}
		require.NoError(t, repo.Create(ctx, e))
		return e
	}
	e1 := add(a, entity.MovementIn, 5, base)
	e2 := add(b, entity.MovementIn, 3, base.Add(time.Hour))
	e3 := add(a, entity.MovementStocktake, 4, base.Add(2*time.Hour))
	add(other, entity.MovementIn, 9, base.Add(time.Hour))
	assert.Less(t, e1.Seq, e2.Seq)

	all, err := repo.Query(ctx, repository.LedgerFilter{OwnerID: "owner-1", Limit: 50})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, e3.ID, all[0].ID)
	assert.Equal(t, e1.ID, all[2].ID)
	assert.Equal(t, "A", all[0].ProductSKU)

	onlyA, err := repo.Query(ctx, repository.LedgerFilter{OwnerID: "owner-1", ProductID: a.ID, Limit: 50})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	stocktakes, err := repo.Query(ctx, repository.LedgerFilter{OwnerID: "owner-1", Type: entity.MovementStocktake, Limit: 50})
	require.NoError(t, err)
	require.Len(t, stocktakes, 1)
	assert.Equal(t, e3.ID, stocktakes[0].ID)

	from, to := base.Add(30*time.Minute), base.Add(90*time.Minute)
	window, err := repo.Query(ctx, repository.LedgerFilter{OwnerID: "owner-1", From: &from, To: &to, Limit: 50})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, e2.ID, window[0].ID)

	page, err := repo.Query(ctx, repository.LedgerFilter{OwnerID: "owner-1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, e2.ID, page[0].ID)
}

func TestApplyChange_ConcurrentOutsNeverOversell(t *testing.T) {
	runner := openTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, runner, "owner-1", "SKU-1", "", 0)
	uc := ledger.NewApplyChangeUseCase(runner, nil, nil)

	_, err := uc.Apply(ctx, ledger.ChangeInput{
		ProductID: p.ID, Type: entity.MovementIn, Quantity: 10, ActorID: "actor",
	})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for k := 0; k < 15; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Apply(ctx, ledger.ChangeInput{
				ProductID: p.ID, Type: entity.MovementOut, Quantity: 1, ActorID: "actor",
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
				fail++
				return
			}
			ok++
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 5, fail)

	rec, err := ledger.NewQueryUseCase(runner, NewLedgerRepository(runner.db), NewProductRepository(runner.db)).
		Reconcile(ctx, "owner-1", p.ID)
	require.NoError(t, err)
	assert.True(t, rec.Balanced)
	assert.Equal(t, int64(0), rec.CurrentStock)
	assert.Equal(t, int64(11), rec.EntryCount)
}

func TestApplyChange_EntradaQueDesbordaNoTocaElStock(t *testing.T) {
	runner := openTestDB(t)
	ctx := context.Background()
	p := seedProduct(t, runner, "owner-1", "SKU-1", "", 1)
	uc := ledger.NewApplyChangeUseCase(runner, nil, nil)

	_, err := uc.Apply(ctx, ledger.ChangeInput{
		ProductID: p.ID, OwnerID: "owner-1", Type: entity.MovementIn, Quantity: math.MaxInt64, ActorID: "user-1",
	})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, ledger.CodeInvalidQuantity, ledger.ErrorCode(err))

	got, err := NewProductRepository(runner.db).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CurrentStock)
}
