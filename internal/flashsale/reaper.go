package flashsale

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/iliyamo/flash-sale/internal/config"
    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/repository"
)

// reapBatchSize bounds how many expired holds one sweep releases so a
// huge backlog cannot monopolize the pool.
const reapBatchSize = 200

// Reaper is the background loop that gives every PENDING reservation its
// bounded lifetime and flips sale statuses at their time boundaries.
// Released quantity is credited back to the ledger exactly once; the
// guarded transition inside Ledger.Release keeps overlapping sweeps and
// racing cancels honest.
type Reaper struct {
    ledger       *Ledger
    sales        *repository.FlashSaleRepo
    reservations *repository.ReservationRepo
    cfg          config.FlashSaleConfig

    // OnExpired, when set, is invoked after a reservation has been
    // released.  Used to publish reservation.expired events; failures
    // there never undo the release.
    OnExpired func(res model.Reservation)
}

func NewReaper(ledger *Ledger, sales *repository.FlashSaleRepo, reservations *repository.ReservationRepo, cfg config.FlashSaleConfig) *Reaper {
    return &Reaper{ledger: ledger, sales: sales, reservations: reservations, cfg: cfg}
}

// Run blocks until ctx is cancelled, sweeping at the configured interval.
func (r *Reaper) Run(ctx context.Context) {
    ticker := time.NewTicker(r.cfg.ReapInterval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            r.Sweep(ctx)
        }
    }
}

// Sweep performs one pass: advance sale lifecycles, then release expired
// holds.  It is exported so tests can drive the reaper deterministically
// instead of waiting on the ticker.
func (r *Reaper) Sweep(ctx context.Context) {
    if n, err := r.sales.ActivateDue(ctx); err != nil {
        log.Printf("reaper: activate due sales: %v", err)
    } else if n > 0 {
        log.Printf("reaper: activated %d sale(s)", n)
    }
    if n, err := r.sales.EndDue(ctx); err != nil {
        log.Printf("reaper: end due sales: %v", err)
    } else if n > 0 {
        log.Printf("reaper: ended %d sale(s)", n)
    }

    expired, err := r.reservations.ListExpired(ctx, reapBatchSize)
    if err != nil {
        log.Printf("reaper: list expired: %v", err)
        return
    }
    released := 0
    for _, rec := range expired {
        res, err := r.ledger.Release(ctx, rec.ID, model.ReservationExpired)
        if err != nil {
            // Losing to a concurrent confirm or cancel is normal traffic,
            // not a fault.
            if errors.Is(err, repository.ErrReservationTerminal) ||
                errors.Is(err, repository.ErrReservationNotFound) {
                continue
            }
            log.Printf("reaper: release reservation %d: %v", rec.ID, err)
            continue
        }
        released++
        if r.OnExpired != nil {
            r.OnExpired(res)
        }
    }
    if released > 0 {
        log.Printf("reaper: released %d expired hold(s)", released)
    }
}
