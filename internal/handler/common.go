package handler

import (
    "errors"
    "math"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flash-sale/internal/flashsale"
    "github.com/iliyamo/flash-sale/internal/repository"
)

// currentUserID pulls the authenticated user id that JWTAuth stored in the
// context.  Handlers behind the auth middleware can assume it is present;
// zero means the route was misconfigured.
func currentUserID(c echo.Context) uint64 {
    if v, ok := c.Get("user_id").(uint64); ok {
        return v
    }
    return 0
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// writeError converts a pipeline error into its single definite HTTP
// response.  Every expected outcome has exactly one status and message;
// anything unrecognized is an internal failure and the client is told to
// retry with the same idempotency key.
func writeError(c echo.Context, err error) error {
    var retry *flashsale.RetryAfterError
    if errors.As(err, &retry) {
        secs := int(math.Ceil(retry.After.Seconds()))
        if secs < 0 {
            secs = 0
        }
        c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
        return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate_limited", "retry_after": secs})
    }

    switch {
    case errors.Is(err, repository.ErrSaleNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "sale not found"})
    case errors.Is(err, repository.ErrSaleNotActive):
        return c.JSON(http.StatusConflict, echo.Map{"error": "sale not active"})
    case errors.Is(err, repository.ErrRateLimited):
        return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate_limited"})
    case errors.Is(err, repository.ErrDuplicateRequest):
        return c.JSON(http.StatusConflict, echo.Map{"error": "request already in flight"})
    case errors.Is(err, repository.ErrSoldOut):
        return c.JSON(http.StatusGone, echo.Map{"error": "sold out"})
    case errors.Is(err, repository.ErrUserLimitExceeded):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "per-user limit exceeded"})
    case errors.Is(err, repository.ErrChallengeNotFound):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown challenge"})
    case errors.Is(err, repository.ErrChallengeExpired):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "challenge expired"})
    case errors.Is(err, repository.ErrChallengeConsumed):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "challenge already used"})
    case errors.Is(err, repository.ErrProofInvalid):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid proof"})
    case errors.Is(err, repository.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    case errors.Is(err, repository.ErrReservationExpired):
        return c.JSON(http.StatusGone, echo.Map{"error": "reservation expired"})
    case errors.Is(err, repository.ErrReservationTerminal):
        return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already finalized"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    c.Logger().Errorf("internal error: %v", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error, retry with the same idempotency key"})
}
