package production

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/stockflow/internal/domain/apperr"
	"github.com/Spok95/stockflow/internal/domain/materials"
)

// Repo хранит журнал заказов в Postgres. Шапка в production_orders,
// снимок спецификации построчно в production_order_lines.
type Repo struct{ pool *pgxpool.Pool }

var (
	_ Ledger      = (*Repo)(nil)
	_ StockLedger = (*Repo)(nil)
)

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Append(ctx context.Context, o Order) (uuid.UUID, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindStorageFault, err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertOrder(ctx, tx, o); err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindStorageFault, err, "commit production order")
	}
	return o.ID, nil
}

// CommitOrder списывает остатки и пишет заказ в одной транзакции:
// при сбое записи откатывается и движение остатков.
func (r *Repo) CommitOrder(ctx context.Context, ownerID string, deltas []materials.Delta, build func([]materials.Material) Order) (Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Order{}, apperr.Wrap(apperr.KindStorageFault, err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := materials.ApplyDeltasTx(ctx, tx, ownerID, deltas)
	if err != nil {
		return Order{}, err
	}
	o := build(updated)
	if err := insertOrder(ctx, tx, o); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, apperr.Wrap(apperr.KindStorageFault, err, "commit production order")
	}
	return o, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o Order) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO production_orders (id, owner_id, finished_product_id, finished_product_name, quantity_produced, production_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, o.ID, o.OwnerID, o.FinishedProductID, o.FinishedProductName, o.QuantityProduced, o.ProductionDate, o.Notes); err != nil {
		return apperr.Wrap(apperr.KindStorageFault, err, "insert production order")
	}

	batch := &pgx.Batch{}
	for i, l := range o.BOMSnapshot {
		batch.Queue(`
			INSERT INTO production_order_lines
			(order_id, line_no, material_id, material_name, material_size, ideal_quantity, ideal_waste, actual_consumed, actual_waste)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, o.ID, i+1, l.MaterialID, l.MaterialName, string(l.MaterialSize),
			l.IdealQuantityPerUnit, l.IdealWastePerUnit, l.ActualQuantityConsumed, l.ActualWaste)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return apperr.Wrap(apperr.KindStorageFault, err, "insert production order lines")
		}
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, ownerID string, id uuid.UUID) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, finished_product_id, finished_product_name, quantity_produced, production_date, notes
		FROM production_orders
		WHERE owner_id = $1 AND id = $2
	`, ownerID, id).Scan(&o.ID, &o.OwnerID, &o.FinishedProductID, &o.FinishedProductName, &o.QuantityProduced, &o.ProductionDate, &o.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, apperr.New(apperr.KindNotFound, "production order %s not found", id)
		}
		return Order{}, apperr.Wrap(apperr.KindStorageFault, err, "get production order")
	}

	lines, err := r.lines(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.BOMSnapshot = lines[o.ID]
	return o, nil
}

func (r *Repo) List(ctx context.Context, ownerID string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, finished_product_id, finished_product_name, quantity_produced, production_date, notes
		FROM production_orders
		WHERE owner_id = $1
		ORDER BY production_date DESC, id
	`, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "list production orders")
	}
	defer rows.Close()

	var out []Order
	var ids []uuid.UUID
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.FinishedProductID, &o.FinishedProductName, &o.QuantityProduced, &o.ProductionDate, &o.Notes); err != nil {
			return nil, apperr.Wrap(apperr.KindStorageFault, err, "scan production order")
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "list production orders")
	}
	if len(out) == 0 {
		return out, nil
	}

	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].BOMSnapshot = lines[out[i].ID]
	}
	return out, nil
}

func (r *Repo) lines(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]SnapshotLine, error) {
	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, material_id, material_name, material_size, ideal_quantity, ideal_waste, actual_consumed, actual_waste
		FROM production_order_lines
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, line_no
	`, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "load order lines")
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]SnapshotLine, len(orderIDs))
	for rows.Next() {
		var orderID uuid.UUID
		var l SnapshotLine
		if err := rows.Scan(&orderID, &l.MaterialID, &l.MaterialName, &l.MaterialSize,
			&l.IdealQuantityPerUnit, &l.IdealWastePerUnit, &l.ActualQuantityConsumed, &l.ActualWaste); err != nil {
			return nil, apperr.Wrap(apperr.KindStorageFault, err, "scan order line")
		}
		out[orderID] = append(out[orderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageFault, err, "load order lines")
	}
	return out, nil
}
