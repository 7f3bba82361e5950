package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `l.seq, l.id, l.product_id, l.type, l.quantity, l.quantity_change, l.stock_after, l.reference, l.notes, l.created_by, l.created_at`

// LedgerRepo implementación de LedgerRepository sobre SQLite.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador.
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Create persiste un asiento y devuelve el seq asignado por AUTOINCREMENT.
func (r *LedgerRepo) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory_logs (id, product_id, type, quantity, quantity_change, stock_after, reference, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProductID, string(entry.Type), entry.Quantity, entry.QuantityChange,
		entry.StockAfter, entry.Reference, entry.Notes, entry.CreatedBy, toUnix(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("ledger entry seq: %w", err)
	}
	entry.Seq = seq
	return nil
}

func (r *LedgerRepo) GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	err := scanEntry(r.q.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM inventory_logs l WHERE l.id = ?`, id), &e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &e, nil
}

func (r *LedgerRepo) Query(ctx context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntryView, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + ledgerColumns + `, p.name, p.sku
		FROM inventory_logs l
		JOIN products p ON p.id = l.product_id
		WHERE p.owner_id = ?`)
	args := []any{f.OwnerID}
	if f.ProductID != "" {
		b.WriteString(" AND l.product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.Type != "" {
		b.WriteString(" AND l.type = ?")
		args = append(args, string(f.Type))
	}
	if f.From != nil {
		b.WriteString(" AND l.created_at >= ?")
		args = append(args, toUnix(*f.From))
	}
	if f.To != nil {
		b.WriteString(" AND l.created_at <= ?")
		args = append(args, toUnix(*f.To))
	}
	b.WriteString(" ORDER BY l.created_at DESC, l.seq DESC LIMIT ? OFFSET ?")
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntryView
	for rows.Next() {
		var v entity.LedgerEntryView
		if err := scanEntry(rows, &v.LedgerEntry, &v.ProductName, &v.ProductSKU); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, &v)
	}
	return list, rows.Err()
}

func (r *LedgerRepo) SumChanges(ctx context.Context, productID string) (int64, int64, error) {
	var sum, count int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity_change), 0), COUNT(*) FROM inventory_logs WHERE product_id = ?`,
		productID,
	).Scan(&sum, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("sum ledger changes: %w", err)
	}
	return sum, count, nil
}

func (r *LedgerRepo) DeleteByProduct(ctx context.Context, productID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM inventory_logs WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}
	return nil
}

func scanEntry(row rowScanner, e *entity.LedgerEntry, extra ...any) error {
	var typ string
	var createdAt int64
	dest := []any{&e.Seq, &e.ID, &e.ProductID, &typ, &e.Quantity, &e.QuantityChange, &e.StockAfter,
		&e.Reference, &e.Notes, &e.CreatedBy, &createdAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	e.Type = entity.MovementType(typ)
	e.CreatedAt = fromUnix(createdAt)
	return nil
}
