package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `l.seq, l.id, l.product_id, l.type, l.quantity, l.quantity_change, l.stock_after, l.reference, l.notes, l.created_by, l.created_at`

// LedgerRepo implementación sobre PostgreSQL de la tabla inventory_logs (usable con pool o tx).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Create persiste un asiento; asigna ID si viene vacío y devuelve el seq generado.
func (r *LedgerRepo) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_logs (id, product_id, type, quantity, quantity_change, stock_after, reference, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		entry.ID, entry.ProductID, string(entry.Type), entry.Quantity, entry.QuantityChange,
		entry.StockAfter, entry.Reference, entry.Notes, entry.CreatedBy, entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	return nil
}

// GetByID obtiene un asiento por ID.
func (r *LedgerRepo) GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	if !validID(id) {
		return nil, nil
	}
	var e entity.LedgerEntry
	var typ string
	err := r.q.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM inventory_logs l WHERE l.id = $1`, id).Scan(
		&e.Seq, &e.ID, &e.ProductID, &typ, &e.Quantity, &e.QuantityChange, &e.StockAfter,
		&e.Reference, &e.Notes, &e.CreatedBy, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	e.Type = entity.MovementType(typ)
	return &e, nil
}

// Query compone los filtros y ordena del más reciente al más antiguo.
func (r *LedgerRepo) Query(ctx context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntryView, error) {
	if f.ProductID != "" && !validID(f.ProductID) {
		return nil, domain.ErrInvalidInput
	}
	query := `
		SELECT ` + ledgerColumns + `, p.name, p.sku
		FROM inventory_logs l
		JOIN products p ON p.id = l.product_id
		WHERE p.owner_id = $1`
	args := []any{f.OwnerID}
	pos := 2
	if f.ProductID != "" {
		query += fmt.Sprintf(" AND l.product_id = $%d", pos)
		args = append(args, f.ProductID)
		pos++
	}
	if f.Type != "" {
		query += fmt.Sprintf(" AND l.type = $%d", pos)
		args = append(args, string(f.Type))
		pos++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND l.created_at >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND l.created_at <= $%d", pos)
		args = append(args, *f.To)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY l.created_at DESC, l.seq DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntryView
	for rows.Next() {
		var v entity.LedgerEntryView
		var typ string
		if err := rows.Scan(&v.Seq, &v.ID, &v.ProductID, &typ, &v.Quantity, &v.QuantityChange, &v.StockAfter,
			&v.Reference, &v.Notes, &v.CreatedBy, &v.CreatedAt, &v.ProductName, &v.ProductSKU); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		v.Type = entity.MovementType(typ)
		list = append(list, &v)
	}
	return list, rows.Err()
}

// SumChanges suma quantity_change de un producto.
func (r *LedgerRepo) SumChanges(ctx context.Context, productID string) (int64, int64, error) {
	if !validID(productID) {
		return 0, 0, nil
	}
	var sum, count int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity_change), 0)::BIGINT, COUNT(*) FROM inventory_logs WHERE product_id = $1`,
		productID,
	).Scan(&sum, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("sum ledger changes: %w", err)
	}
	return sum, count, nil
}

// DeleteByProduct borra los asientos de un producto (solo borrado en cascada).
func (r *LedgerRepo) DeleteByProduct(ctx context.Context, productID string) error {
	if !validID(productID) {
		return nil
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM inventory_logs WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}
	return nil
}
