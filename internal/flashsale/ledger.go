package flashsale

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/flash-sale/internal/config"
    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/repository"
)

// Ledger owns every stock movement for every sale.  Each operation is one
// database transaction opened against the sale row's exclusive lock, so
// concurrent callers for the same sale are sequenced by InnoDB while
// different sales proceed in parallel.  Whichever transaction the store
// sequences first wins; no fairness among racing callers is promised.
type Ledger struct {
    sales        *repository.FlashSaleRepo
    reservations *repository.ReservationRepo
    cfg          config.FlashSaleConfig
}

func NewLedger(sales *repository.FlashSaleRepo, reservations *repository.ReservationRepo, cfg config.FlashSaleConfig) *Ledger {
    return &Ledger{sales: sales, reservations: reservations, cfg: cfg}
}

// TryReserve atomically borrows qty units of stock for the user and
// records a PENDING reservation.  Stock decrement and reservation insert
// share one transaction, so a crash between them cannot happen.  The
// per-user cap and the remaining stock are checked against the same
// locked snapshot: quantity > 1 requests are all-or-nothing.
func (l *Ledger) TryReserve(ctx context.Context, saleID, userID uint64, qty uint32) (model.Reservation, error) {
    if qty == 0 {
        return model.Reservation{}, repository.ErrSoldOut
    }

    tx, err := l.sales.DB().BeginTx(ctx, nil)
    if err != nil {
        return model.Reservation{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    sale, err := l.sales.GetForUpdateTx(ctx, tx, saleID)
    if err != nil {
        return model.Reservation{}, err
    }
    if sale.Status != model.SaleStatusActive {
        return model.Reservation{}, repository.ErrSaleNotActive
    }
    if sale.SoldQuantity+sale.ReservedQuantity+qty > sale.TotalQuantity {
        return model.Reservation{}, repository.ErrSoldOut
    }

    held, err := l.reservations.SumHeldByUserTx(ctx, tx, saleID, userID)
    if err != nil {
        return model.Reservation{}, err
    }
    if held+qty > sale.MaxPerUser {
        return model.Reservation{}, repository.ErrUserLimitExceeded
    }

    // The guarded UPDATE re-validates status and stock; a false here means
    // the snapshot went stale, which cannot happen while we hold the row
    // lock but is cheap to keep honest.
    ok, err := l.sales.ReserveStockTx(ctx, tx, saleID, qty)
    if err != nil {
        return model.Reservation{}, err
    }
    if !ok {
        return model.Reservation{}, repository.ErrSoldOut
    }

    rec := repository.ReservationRecord{
        SaleID:    saleID,
        UserID:    userID,
        Quantity:  qty,
        ExpiresAt: time.Now().UTC().Add(l.cfg.ReservationTTL),
    }
    if err := l.reservations.CreateTx(ctx, tx, &rec); err != nil {
        return model.Reservation{}, err
    }

    if err := tx.Commit(); err != nil {
        return model.Reservation{}, err
    }
    committed = true
    return toModel(rec), nil
}

// Confirm finalizes a PENDING reservation: the reserved quantity becomes
// sold, permanently.  Confirming an already CONFIRMED reservation is a
// no-op success so the downstream order service can retry blindly.  A
// PENDING reservation whose TTL already lapsed is released on the spot
// (lazy expiry) and reported as expired.
func (l *Ledger) Confirm(ctx context.Context, reservationID uint64) (model.Reservation, error) {
    var out model.Reservation
    err := l.withTx(ctx, func(tx *sql.Tx) error {
        rec, err := l.reservations.GetByIDTx(ctx, tx, reservationID)
        if err != nil {
            return err
        }
        if rec.Status == model.ReservationPending && time.Now().UTC().After(rec.ExpiresAt) {
            if err := l.releaseTx(ctx, tx, &rec, model.ReservationExpired); err != nil {
                return err
            }
            out = toModel(rec)
            return repository.ErrReservationExpired
        }
        won, err := l.reservations.MarkConfirmedTx(ctx, tx, reservationID)
        if err != nil {
            return err
        }
        if won {
            if err := l.sales.CommitStockTx(ctx, tx, rec.SaleID, rec.Quantity); err != nil {
                return err
            }
            rec.Status = model.ReservationConfirmed
            out = toModel(rec)
            return nil
        }
        // Lost the transition: somebody else moved it first.  Re-read to
        // find out where it went.
        rec, err = l.reservations.GetByIDTx(ctx, tx, reservationID)
        if err != nil {
            return err
        }
        out = toModel(rec)
        switch rec.Status {
        case model.ReservationConfirmed:
            return nil // idempotent retry
        case model.ReservationExpired:
            return repository.ErrReservationExpired
        default:
            return repository.ErrReservationTerminal
        }
    })
    return out, err
}

// Cancel releases a PENDING reservation at the holder's request.  Only
// the owner may cancel.  Cancelling an already CANCELLED reservation is
// a no-op success.
func (l *Ledger) Cancel(ctx context.Context, reservationID, userID uint64) (model.Reservation, error) {
    var out model.Reservation
    err := l.withTx(ctx, func(tx *sql.Tx) error {
        rec, err := l.reservations.GetByIDTx(ctx, tx, reservationID)
        if err != nil {
            return err
        }
        if rec.UserID != userID {
            return repository.ErrForbidden
        }
        if err := l.releaseTx(ctx, tx, &rec, model.ReservationCancelled); err != nil {
            return err
        }
        out = toModel(rec)
        return nil
    })
    return out, err
}

// Release moves a PENDING reservation to the given terminal state and
// credits its quantity back to the sale.  Used by the reaper; callers
// racing over the same reservation resolve through the guarded
// transition, so the credit happens exactly once.
func (l *Ledger) Release(ctx context.Context, reservationID uint64, toStatus string) (model.Reservation, error) {
    var out model.Reservation
    err := l.withTx(ctx, func(tx *sql.Tx) error {
        rec, err := l.reservations.GetByIDTx(ctx, tx, reservationID)
        if err != nil {
            return err
        }
        if err := l.releaseTx(ctx, tx, &rec, toStatus); err != nil {
            return err
        }
        out = toModel(rec)
        return nil
    })
    return out, err
}

// releaseTx performs the guarded PENDING -> toStatus transition plus the
// stock credit.  The transition guard is what makes the credit
// exactly-once: a reservation that already left PENDING affects zero rows
// and no credit is issued.
func (l *Ledger) releaseTx(ctx context.Context, tx *sql.Tx, rec *repository.ReservationRecord, toStatus string) error {
    won, err := l.reservations.MarkReleasedTx(ctx, tx, rec.ID, toStatus)
    if err != nil {
        return err
    }
    if won {
        if err := l.sales.ReleaseStockTx(ctx, tx, rec.SaleID, rec.Quantity); err != nil {
            return err
        }
        rec.Status = toStatus
        return nil
    }
    got, err := l.reservations.GetByIDTx(ctx, tx, rec.ID)
    if err != nil {
        return err
    }
    *rec = got
    if got.Status == toStatus {
        return nil // already released the same way: idempotent
    }
    switch got.Status {
    case model.ReservationExpired:
        return repository.ErrReservationExpired
    default:
        return repository.ErrReservationTerminal
    }
}

// withTx wraps fn in a transaction with the usual rollback-on-error
// pattern.  The transaction commits only when fn returns nil or one of
// the expected outcome errors that still performed a transition (lazy
// expiry inside Confirm).
func (l *Ledger) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
    tx, err := l.sales.DB().BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    ferr := fn(tx)
    if ferr == nil || ferr == repository.ErrReservationExpired || ferr == repository.ErrReservationTerminal {
        // Terminal-outcome errors may have performed a lazy release that
        // must survive, so commit before reporting them.
        if cerr := tx.Commit(); cerr != nil {
            return cerr
        }
        return ferr
    }
    _ = tx.Rollback()
    return ferr
}

func toModel(rec repository.ReservationRecord) model.Reservation {
    return model.Reservation{
        ID:        rec.ID,
        SaleID:    rec.SaleID,
        UserID:    rec.UserID,
        Quantity:  rec.Quantity,
        Status:    rec.Status,
        ExpiresAt: rec.ExpiresAt,
        CreatedAt: rec.CreatedAt,
        UpdatedAt: rec.UpdatedAt,
    }
}
