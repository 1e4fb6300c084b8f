package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flash-sale/internal/flashsale"
    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/queue"
    "github.com/iliyamo/flash-sale/internal/repository"
    queuepub "github.com/iliyamo/flash-sale/internal/service"
)

// ReservationHandler serves the hold lifecycle after a purchase: confirm,
// cancel and list.
type ReservationHandler struct {
    Ledger       *flashsale.Ledger
    Reservations *repository.ReservationRepo
    Sales        *repository.FlashSaleRepo
}

func NewReservationHandler(ledger *flashsale.Ledger, r *repository.ReservationRepo, s *repository.FlashSaleRepo) *ReservationHandler {
    return &ReservationHandler{Ledger: ledger, Reservations: r, Sales: s}
}

type reservationResp struct {
    ID        uint64    `json:"id"`
    SaleID    uint64    `json:"sale_id"`
    UserID    uint64    `json:"user_id"`
    Quantity  uint32    `json:"quantity"`
    Status    string    `json:"status"`
    ExpiresAt time.Time `json:"expires_at"`
    CreatedAt time.Time `json:"created_at"`
}

func toReservationResp(res model.Reservation) reservationResp {
    return reservationResp{
        ID:        res.ID,
        SaleID:    res.SaleID,
        UserID:    res.UserID,
        Quantity:  res.Quantity,
        Status:    res.Status,
        ExpiresAt: res.ExpiresAt,
        CreatedAt: res.CreatedAt,
    }
}

// Confirm finalizes a pending hold into sold stock.  Confirming twice is
// idempotent; confirming a hold the reaper already released reports the
// expiry instead of silently resurrecting it.
func (h *ReservationHandler) Confirm(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    userID := currentUserID(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    // Ownership check before any transition.
    rec, err := h.Reservations.GetByID(ctx, id)
    if err != nil {
        return writeError(c, err)
    }
    if rec.UserID != userID {
        return writeError(c, repository.ErrForbidden)
    }

    res, err := h.Ledger.Confirm(ctx, id)
    if err != nil {
        return writeError(c, err)
    }

    // The confirm is durable in MySQL; event publishing is best effort.
    go func(res model.Reservation) {
        pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer pcancel()
        _ = queuepub.PublishReservationEvent(pctx, queue.ReservationEvent{
            Type:          queue.EventReservationConfirmed,
            ReservationID: res.ID,
            SaleID:        res.SaleID,
            UserID:        res.UserID,
            Quantity:      res.Quantity,
            OccurredAt:    time.Now().UTC().Format(time.RFC3339),
        })
    }(res)

    return c.JSON(http.StatusOK, toReservationResp(res))
}

// Cancel releases a pending hold back to the ledger at the owner's
// request.  Cancelling twice is idempotent.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    userID := currentUserID(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Ledger.Cancel(ctx, id, userID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(res))
}

// List returns the authenticated user's reservations, newest first.
func (h *ReservationHandler) List(c echo.Context) error {
    userID := currentUserID(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    recs, err := h.Reservations.ListByUser(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
    }
    out := make([]reservationResp, 0, len(recs))
    for _, rec := range recs {
        out = append(out, reservationResp{
            ID:        rec.ID,
            SaleID:    rec.SaleID,
            UserID:    rec.UserID,
            Quantity:  rec.Quantity,
            Status:    rec.Status,
            ExpiresAt: rec.ExpiresAt,
            CreatedAt: rec.CreatedAt,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}
