package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flash-sale/internal/flashsale"
)

// PurchaseHandler fronts the purchase pipeline: challenge issuance and the
// purchase attempt itself.
type PurchaseHandler struct {
    Issuer       *flashsale.Issuer
    Orchestrator *flashsale.Orchestrator
}

func NewPurchaseHandler(issuer *flashsale.Issuer, orch *flashsale.Orchestrator) *PurchaseHandler {
    return &PurchaseHandler{Issuer: issuer, Orchestrator: orch}
}

type purchaseReq struct {
    SaleID         uint64 `json:"flash_sale_id"`
    Quantity       uint32 `json:"quantity"`
    ChallengeID    string `json:"challenge_id"`
    Nonce          string `json:"nonce"`
    IdempotencyKey string `json:"idempotency_key"`
}

type purchaseResp struct {
    ReservationID uint64    `json:"reservation_id"`
    ExpiresAt     time.Time `json:"expires_at"`
}

// Challenge issues a proof-of-work challenge bound to the sale and the
// authenticated user.  Difficulty follows the sale's observed attempt
// rate, so the work factor rises exactly when the stampede does.
func (h *PurchaseHandler) Challenge(c echo.Context) error {
    saleID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sale id"})
    }
    userID := currentUserID(c)
    if userID == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    ch, err := h.Issuer.Issue(ctx, saleID, userID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, ch)
}

// Purchase runs one purchase attempt through the pipeline.  The buyer
// identity comes from the access token; the idempotency key comes from
// the Idempotency-Key header or, failing that, the request body, and must
// stay the same across client retries of the same logical attempt.
func (h *PurchaseHandler) Purchase(c echo.Context) error {
    var req purchaseReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    userID := currentUserID(c)
    if userID == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }
    if hdr := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key")); hdr != "" {
        req.IdempotencyKey = hdr
    }
    if req.SaleID == 0 || req.ChallengeID == "" || req.Nonce == "" || req.IdempotencyKey == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "flash_sale_id, challenge_id, nonce and idempotency_key required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Orchestrator.Purchase(ctx, flashsale.PurchaseRequest{
        SaleID:         req.SaleID,
        UserID:         userID,
        Quantity:       req.Quantity,
        ChallengeID:    req.ChallengeID,
        Nonce:          req.Nonce,
        IdempotencyKey: req.IdempotencyKey,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, purchaseResp{ReservationID: res.ID, ExpiresAt: res.ExpiresAt})
}
