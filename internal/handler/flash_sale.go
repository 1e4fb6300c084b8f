package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flash-sale/internal/repository"
)

// FlashSaleHandler serves sale administration and the public sale-status
// reads that buyers poll while waiting for a drop to open.
type FlashSaleHandler struct {
    Sales        *repository.FlashSaleRepo
    Reservations *repository.ReservationRepo
}

func NewFlashSaleHandler(s *repository.FlashSaleRepo, r *repository.ReservationRepo) *FlashSaleHandler {
    return &FlashSaleHandler{Sales: s, Reservations: r}
}

type createSaleReq struct {
    ProductName   string    `json:"product_name"`
    TotalQuantity uint32    `json:"total_quantity"`
    MaxPerUser    uint32    `json:"max_per_user"`
    StartsAt      time.Time `json:"starts_at"`
    EndsAt        time.Time `json:"ends_at"`
}

type saleResp struct {
    ID            uint64    `json:"id"`
    ProductName   string    `json:"product_name"`
    TotalQuantity uint32    `json:"total_quantity"`
    SoldQuantity  uint32    `json:"sold_quantity"`
    Remaining     uint32    `json:"remaining"`
    MaxPerUser    uint32    `json:"max_per_user"`
    StartsAt      time.Time `json:"starts_at"`
    EndsAt        time.Time `json:"ends_at"`
    Status        string    `json:"status"`
}

func toSaleResp(rec repository.FlashSaleRecord) saleResp {
    used := rec.SoldQuantity + rec.ReservedQuantity
    remaining := uint32(0)
    if used < rec.TotalQuantity {
        remaining = rec.TotalQuantity - used
    }
    return saleResp{
        ID:            rec.ID,
        ProductName:   rec.ProductName,
        TotalQuantity: rec.TotalQuantity,
        SoldQuantity:  rec.SoldQuantity,
        Remaining:     remaining,
        MaxPerUser:    rec.MaxPerUser,
        StartsAt:      rec.StartsAt,
        EndsAt:        rec.EndsAt,
        Status:        rec.Status,
    }
}

// Create registers a new sale in SCHEDULED state (ADMIN only).
func (h *FlashSaleHandler) Create(c echo.Context) error {
    var req createSaleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.ProductName == "" || req.TotalQuantity == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_name/total_quantity required"})
    }
    if req.MaxPerUser == 0 {
        req.MaxPerUser = 1
    }
    if !req.EndsAt.After(req.StartsAt) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, err := h.Sales.Create(ctx, req.ProductName, req.TotalQuantity, req.MaxPerUser, req.StartsAt, req.EndsAt)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create sale failed"})
    }
    rec, err := h.Sales.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read back sale failed"})
    }
    return c.JSON(http.StatusCreated, toSaleResp(rec))
}

// List returns all sales, newest first.  Public; sits behind the response
// cache so pollers never reach MySQL more than once per TTL.
func (h *FlashSaleHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    recs, err := h.Sales.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list sales failed"})
    }
    out := make([]saleResp, 0, len(recs))
    for _, rec := range recs {
        out = append(out, toSaleResp(rec))
    }
    return c.JSON(http.StatusOK, echo.Map{"sales": out})
}

// Get returns one sale's status.  Public.
func (h *FlashSaleHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Sales.GetByID(ctx, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toSaleResp(rec))
}

// Dashboard returns operational counters for one sale (ADMIN only).
func (h *FlashSaleHandler) Dashboard(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Sales.GetByID(ctx, id)
    if err != nil {
        return writeError(c, err)
    }
    pending, err := h.Reservations.CountPendingBySale(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count pending failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "sale":                 toSaleResp(rec),
        "reserved_quantity":    rec.ReservedQuantity,
        "pending_reservations": pending,
    })
}
