package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// FlashSaleRepo provides persistence for flash sales and owns every
// mutation of the quantity columns.  All stock movements are conditional
// single-statement UPDATEs executed inside a caller-supplied transaction,
// so the invariant sold + reserved <= total can never be violated by an
// interleaving: an UPDATE whose WHERE clause fails simply affects zero
// rows.  All timestamps are stored and compared in UTC.
type FlashSaleRepo struct {
    db *sql.DB
}

// NewFlashSaleRepo returns a FlashSaleRepo bound to the given database.
func NewFlashSaleRepo(db *sql.DB) *FlashSaleRepo { return &FlashSaleRepo{db: db} }

// DB exposes the underlying handle so handlers and services can open
// transactions spanning multiple repositories.
func (r *FlashSaleRepo) DB() *sql.DB { return r.db }

const saleColumns = `id, product_name, total_quantity, sold_quantity, reserved_quantity,
        max_per_user, starts_at, ends_at, status, created_at, updated_at`

// scanSale reads one row in saleColumns order.
func scanSale(row interface{ Scan(...any) error }) (FlashSaleRecord, error) {
    var s FlashSaleRecord
    err := row.Scan(&s.ID, &s.ProductName, &s.TotalQuantity, &s.SoldQuantity,
        &s.ReservedQuantity, &s.MaxPerUser, &s.StartsAt, &s.EndsAt, &s.Status,
        &s.CreatedAt, &s.UpdatedAt)
    return s, err
}

// FlashSaleRecord mirrors the flash_sales table.  Business logic should
// use model.FlashSale; the record type keeps scanning concerns local to
// the repository.
type FlashSaleRecord struct {
    ID               uint64
    ProductName      string
    TotalQuantity    uint32
    SoldQuantity     uint32
    ReservedQuantity uint32
    MaxPerUser       uint32
    StartsAt         time.Time
    EndsAt           time.Time
    Status           string
    CreatedAt        time.Time
    UpdatedAt        time.Time
}

// Create inserts a new sale in SCHEDULED state and populates the generated
// ID on the provided record.  Quantities start at zero sold/reserved.
func (r *FlashSaleRepo) Create(ctx context.Context, productName string, total, maxPerUser uint32, startsAt, endsAt time.Time) (uint64, error) {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO flash_sales (product_name, total_quantity, max_per_user, starts_at, ends_at, status)
         VALUES (?, ?, ?, ?, ?, 'SCHEDULED')`,
        productName, total, maxPerUser,
        startsAt.UTC().Format("2006-01-02 15:04:05"),
        endsAt.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByID returns a single sale.  ErrSaleNotFound is returned when the id
// is unknown.
func (r *FlashSaleRepo) GetByID(ctx context.Context, id uint64) (FlashSaleRecord, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM flash_sales WHERE id = ?`, id)
    s, err := scanSale(row)
    if errors.Is(err, sql.ErrNoRows) {
        return FlashSaleRecord{}, ErrSaleNotFound
    }
    return s, err
}

// GetForUpdateTx loads a sale row under an exclusive row lock.  Taking the
// lock serializes every stock mutation for that one sale while leaving
// unrelated sales untouched; it is the single serialization point of the
// inventory ledger.
func (r *FlashSaleRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (FlashSaleRecord, error) {
    row := tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM flash_sales WHERE id = ? FOR UPDATE`, id)
    s, err := scanSale(row)
    if errors.Is(err, sql.ErrNoRows) {
        return FlashSaleRecord{}, ErrSaleNotFound
    }
    return s, err
}

// List returns all sales ordered by start time descending.
func (r *FlashSaleRepo) List(ctx context.Context) ([]FlashSaleRecord, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+saleColumns+` FROM flash_sales ORDER BY starts_at DESC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    sales := make([]FlashSaleRecord, 0)
    for rows.Next() {
        s, err := scanSale(rows)
        if err != nil {
            return nil, err
        }
        sales = append(sales, s)
    }
    return sales, rows.Err()
}

// ReserveStockTx moves qty units from available to reserved.  The guard in
// the WHERE clause re-checks both the sale status and the stock invariant,
// so a stale read before the row lock was taken can never oversell.  It
// returns false when the guard fails (sold out or sale no longer ACTIVE).
func (r *FlashSaleRepo) ReserveStockTx(ctx context.Context, tx *sql.Tx, saleID uint64, qty uint32) (bool, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE flash_sales
            SET reserved_quantity = reserved_quantity + ?
          WHERE id = ? AND status = 'ACTIVE'
            AND sold_quantity + reserved_quantity + ? <= total_quantity`,
        qty, saleID, qty)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// CommitStockTx converts qty reserved units into sold units when a
// reservation is confirmed.  sold_quantity only ever grows.
func (r *FlashSaleRepo) CommitStockTx(ctx context.Context, tx *sql.Tx, saleID uint64, qty uint32) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE flash_sales
            SET reserved_quantity = reserved_quantity - ?,
                sold_quantity     = sold_quantity + ?
          WHERE id = ? AND reserved_quantity >= ?`,
        qty, qty, saleID, qty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n != 1 {
        // Should be unreachable while release stays guarded; surfacing the
        // inconsistency beats silently corrupting the counters.
        return errors.New("flash sale ledger out of balance on commit")
    }
    return nil
}

// ReleaseStockTx returns qty reserved units to the available pool when a
// PENDING reservation expires or is cancelled.
func (r *FlashSaleRepo) ReleaseStockTx(ctx context.Context, tx *sql.Tx, saleID uint64, qty uint32) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE flash_sales
            SET reserved_quantity = reserved_quantity - ?
          WHERE id = ? AND reserved_quantity >= ?`,
        qty, saleID, qty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n != 1 {
        return errors.New("flash sale ledger out of balance on release")
    }
    return nil
}

// ActivateDue flips SCHEDULED sales whose start time has passed to ACTIVE
// and returns how many rows changed.
func (r *FlashSaleRepo) ActivateDue(ctx context.Context) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE flash_sales SET status = 'ACTIVE'
          WHERE status = 'SCHEDULED' AND starts_at <= UTC_TIMESTAMP()`)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// EndDue flips ACTIVE sales whose end time has passed to ENDED and returns
// how many rows changed.
func (r *FlashSaleRepo) EndDue(ctx context.Context) (int64, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE flash_sales SET status = 'ENDED'
          WHERE status = 'ACTIVE' AND ends_at <= UTC_TIMESTAMP()`)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
