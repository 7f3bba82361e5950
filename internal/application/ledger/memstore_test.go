package ledger_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// memStore almacenamiento en memoria con transacciones serializadas (un mutex global)
// y rollback por snapshot. Sirve de TxRunner y de repositorios "de pool".
type memStore struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	order    []string
	entries  []*entity.LedgerEntry
	seq      int64

	failEntryInsert error
	failList        error
}

var _ ledger.TxRunner = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{products: make(map[string]*entity.Product)}
}

func (s *memStore) addProduct(owner, sku, barcode string, stock, minLevel int64) *entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p := &entity.Product{
		ID: uuid.New().String(), OwnerID: owner, SKU: sku, Name: "Producto " + sku, Barcode: barcode,
		CurrentStock: stock, MinStockLevel: minLevel, CreatedAt: now, UpdatedAt: now,
	}
	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	if stock > 0 {
		s.seq++
		s.entries = append(s.entries, &entity.LedgerEntry{
			ID: uuid.New().String(), Seq: s.seq, ProductID: p.ID, Type: entity.MovementIn,
			Quantity: stock, QuantityChange: stock, StockAfter: stock,
			Reference: "Initial Stock", CreatedBy: "seed", CreatedAt: now,
		})
	}
	return p
}

func (s *memStore) stock(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].CurrentStock
}

func (s *memStore) entriesFor(id string) []*entity.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.LedgerEntry
	for _, e := range s.entries {
		if e.ProductID == id {
			out = append(out, e)
		}
	}
	return out
}

// Run serializa transacciones; si fn falla o ctx se cancela, restaura el snapshot.
func (s *memStore) Run(ctx context.Context, fn func(repository.ProductRepository, repository.LedgerRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := make(map[string]entity.Product, len(s.products))
	for id, p := range s.products {
		snapshot[id] = *p
	}
	entries := append([]*entity.LedgerEntry(nil), s.entries...)
	order := append([]string(nil), s.order...)
	seq := s.seq

	err := fn(&memProducts{s: s, inTx: true}, &memLedger{s: s, inTx: true})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.products = make(map[string]*entity.Product, len(snapshot))
		for id, p := range snapshot {
			cp := p
			s.products[id] = &cp
		}
		s.entries, s.order, s.seq = entries, order, seq
		return err
	}
	return nil
}

func (s *memStore) productRepo() *memProducts { return &memProducts{s: s} }
func (s *memStore) ledgerRepo() *memLedger    { return &memLedger{s: s} }

func (s *memStore) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type memProducts struct {
	s    *memStore
	inTx bool
}

var _ repository.ProductRepository = (*memProducts)(nil)

func (r *memProducts) Create(_ context.Context, p *entity.Product) error {
	defer r.s.lock(r.inTx)()
	cp := *p
	r.s.products[p.ID] = &cp
	r.s.order = append(r.s.order, p.ID)
	return nil
}

func (r *memProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	defer r.s.lock(r.inTx)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProducts) GetByOwnerAndSKU(_ context.Context, ownerID, sku string) (*entity.Product, error) {
	defer r.s.lock(r.inTx)()
	for _, id := range r.s.order {
		if p := r.s.products[id]; p != nil && p.OwnerID == ownerID && p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memProducts) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *memProducts) ListByOwner(_ context.Context, ownerID string) ([]*entity.Product, error) {
	defer r.s.lock(r.inTx)()
	if r.s.failList != nil {
		return nil, r.s.failList
	}
	var out []*entity.Product
	for _, id := range r.s.order {
		if p := r.s.products[id]; p != nil && p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProducts) ListPage(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Product, error) {
	all, err := r.ListByOwner(ctx, ownerID)
	if err != nil || offset >= len(all) {
		return nil, err
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (r *memProducts) ListLowStock(ctx context.Context, ownerID string) ([]*entity.Product, error) {
	all, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var out []*entity.Product
	for _, p := range all {
		if p.BelowMinimum() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProducts) UpdateDetails(_ context.Context, p *entity.Product) error {
	defer r.s.lock(r.inTx)()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Name, cur.Barcode, cur.MinStockLevel, cur.UpdatedAt = p.Name, p.Barcode, p.MinStockLevel, p.UpdatedAt
	return nil
}

func (r *memProducts) UpdateStock(_ context.Context, id string, newStock int64) error {
	defer r.s.lock(r.inTx)()
	if newStock < 0 {
		return domain.ErrInsufficientStock
	}
	p, ok := r.s.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.CurrentStock = newStock
	return nil
}

func (r *memProducts) Delete(_ context.Context, id string) error {
	defer r.s.lock(r.inTx)()
	delete(r.s.products, id)
	return nil
}

type memLedger struct {
	s    *memStore
	inTx bool
}

var _ repository.LedgerRepository = (*memLedger)(nil)

func (r *memLedger) Create(_ context.Context, e *entity.LedgerEntry) error {
	defer r.s.lock(r.inTx)()
	if r.s.failEntryInsert != nil {
		return r.s.failEntryInsert
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	r.s.seq++
	e.Seq = r.s.seq
	cp := *e
	r.s.entries = append(r.s.entries, &cp)
	return nil
}

func (r *memLedger) GetByID(_ context.Context, id string) (*entity.LedgerEntry, error) {
	defer r.s.lock(r.inTx)()
	for _, e := range r.s.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memLedger) Query(_ context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntryView, error) {
	defer r.s.lock(r.inTx)()
	var out []*entity.LedgerEntryView
	for _, e := range r.s.entries {
		p := r.s.products[e.ProductID]
		if p == nil || p.OwnerID != f.OwnerID {
			continue
		}
		if (f.ProductID != "" && e.ProductID != f.ProductID) ||
			(f.Type != "" && e.Type != f.Type) ||
			(f.From != nil && e.CreatedAt.Before(*f.From)) ||
			(f.To != nil && e.CreatedAt.After(*f.To)) {
			continue
		}
		out = append(out, &entity.LedgerEntryView{LedgerEntry: *e, ProductName: p.Name, ProductSKU: p.SKU})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	return out[f.Offset:min(f.Offset+f.Limit, len(out))], nil
}

func (r *memLedger) SumChanges(_ context.Context, productID string) (int64, int64, error) {
	defer r.s.lock(r.inTx)()
	var sum, count int64
	for _, e := range r.s.entries {
		if e.ProductID == productID {
			sum += e.QuantityChange
			count++
		}
	}
	return sum, count, nil
}

func (r *memLedger) DeleteByProduct(_ context.Context, productID string) error {
	defer r.s.lock(r.inTx)()
	var kept []*entity.LedgerEntry
	for _, e := range r.s.entries {
		if e.ProductID != productID {
			kept = append(kept, e)
		}
	}
	r.s.entries = kept
	return nil
}

// recordingPublisher guarda los eventos publicados.
type recordingPublisher struct {
	mu     sync.Mutex
	events []ledger.StockChangedEvent
	err    error
}

func (p *recordingPublisher) PublishStockChanged(_ context.Context, e ledger.StockChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

var errBoom = errors.New("fallo de almacenamiento")
