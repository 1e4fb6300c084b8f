package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// ReservationRepo provides persistence for reservations.  State
// transitions out of PENDING are guarded conditional UPDATEs: whichever
// caller's statement affects a row wins the transition and everyone else
// observes zero rows affected.  That guard is what makes release and
// confirm exactly-once under concurrent reapers, cancels and confirms.
// All timestamp fields are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationRecord mirrors the reservations table.
type ReservationRecord struct {
    ID        uint64
    SaleID    uint64
    UserID    uint64
    Quantity  uint32
    Status    string
    ExpiresAt time.Time
    CreatedAt time.Time
    UpdatedAt time.Time
}

const reservationColumns = `id, sale_id, user_id, quantity, status, expires_at, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (ReservationRecord, error) {
    var rec ReservationRecord
    err := row.Scan(&rec.ID, &rec.SaleID, &rec.UserID, &rec.Quantity, &rec.Status,
        &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
    return rec, err
}

// CreateTx inserts a new PENDING reservation within an existing
// transaction and populates the generated ID.  The caller must commit or
// roll back; the insert shares its transaction with the stock decrement so
// the two are one atomic unit.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *ReservationRecord) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO reservations (sale_id, user_id, quantity, status, expires_at)
         VALUES (?, ?, ?, 'PENDING', ?)`,
        rec.SaleID, rec.UserID, rec.Quantity,
        rec.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rec.ID = uint64(id)
    rec.Status = "PENDING"
    // Query back the full row to populate timestamps and defaults.
    row := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, rec.ID)
    got, err := scanReservation(row)
    if err != nil {
        return err
    }
    *rec = got
    return nil
}

// GetByID returns a single reservation.  ErrReservationNotFound is
// returned when the id is unknown.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (ReservationRecord, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
    rec, err := scanReservation(row)
    if errors.Is(err, sql.ErrNoRows) {
        return ReservationRecord{}, ErrReservationNotFound
    }
    return rec, err
}

// GetByIDTx is GetByID within a transaction, used after a failed guarded
// transition to discover which terminal state won.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (ReservationRecord, error) {
    row := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
    rec, err := scanReservation(row)
    if errors.Is(err, sql.ErrNoRows) {
        return ReservationRecord{}, ErrReservationNotFound
    }
    return rec, err
}

// SumHeldByUserTx returns the total quantity a user holds against a sale
// across PENDING and CONFIRMED reservations.  It runs inside the ledger
// transaction, after the sale row lock has been taken, so the sum cannot
// race with a concurrent reservation for the same sale.
func (r *ReservationRepo) SumHeldByUserTx(ctx context.Context, tx *sql.Tx, saleID, userID uint64) (uint32, error) {
    var sum uint32
    err := tx.QueryRowContext(ctx,
        `SELECT COALESCE(SUM(quantity), 0) FROM reservations
          WHERE sale_id = ? AND user_id = ? AND status IN ('PENDING','CONFIRMED')`,
        saleID, userID).Scan(&sum)
    return sum, err
}

// MarkConfirmedTx attempts the PENDING -> CONFIRMED transition.  It
// returns true when this caller won the transition and false when the
// reservation was no longer PENDING.
func (r *ReservationRepo) MarkConfirmedTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = 'CONFIRMED' WHERE id = ? AND status = 'PENDING'`, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// MarkReleasedTx attempts the PENDING -> EXPIRED/CANCELLED transition.
// toStatus must be "EXPIRED" or "CANCELLED".  Returns true when this
// caller won the transition; only the winner may credit quantity back to
// the ledger, which is what prevents double release.
func (r *ReservationRepo) MarkReleasedTx(ctx context.Context, tx *sql.Tx, id uint64, toStatus string) (bool, error) {
    if toStatus != "EXPIRED" && toStatus != "CANCELLED" {
        return false, errors.New("invalid release status: " + toStatus)
    }
    res, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = ? WHERE id = ? AND status = 'PENDING'`, toStatus, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// ListExpired returns up to limit PENDING reservations whose expiry has
// passed.  The reaper releases each one individually through the guarded
// transition, so overlapping scans are harmless.
func (r *ReservationRepo) ListExpired(ctx context.Context, limit int) ([]ReservationRecord, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations
          WHERE status = 'PENDING' AND expires_at <= UTC_TIMESTAMP()
          ORDER BY expires_at LIMIT ?`, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var recs []ReservationRecord
    for rows.Next() {
        rec, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        recs = append(recs, rec)
    }
    return recs, rows.Err()
}

// ListByUser returns all reservations belonging to a user, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationRecord, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations
          WHERE user_id = ? ORDER BY created_at DESC`, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    recs := make([]ReservationRecord, 0)
    for rows.Next() {
        rec, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        recs = append(recs, rec)
    }
    return recs, rows.Err()
}

// CountPendingBySale returns the number of live holds for a sale.  Used by
// the read-only dashboard endpoint.
func (r *ReservationRepo) CountPendingBySale(ctx context.Context, saleID uint64) (uint32, error) {
    var n uint32
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM reservations WHERE sale_id = ? AND status = 'PENDING'`,
        saleID).Scan(&n)
    return n, err
}
