package handler

import (
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flash-sale/internal/flashsale"
    "github.com/iliyamo/flash-sale/internal/repository"
)

// The status codes are the load-bearing contract of the purchase API;
// every taxonomy error must map to exactly one.
func TestWriteErrorStatusMapping(t *testing.T) {
    cases := []struct {
        err  error
        want int
    }{
        {repository.ErrSaleNotFound, http.StatusNotFound},
        {repository.ErrSaleNotActive, http.StatusConflict},
        {repository.ErrRateLimited, http.StatusTooManyRequests},
        {repository.ErrDuplicateRequest, http.StatusConflict},
        {repository.ErrSoldOut, http.StatusGone},
        {repository.ErrUserLimitExceeded, http.StatusForbidden},
        {repository.ErrChallengeNotFound, http.StatusBadRequest},
        {repository.ErrChallengeExpired, http.StatusBadRequest},
        {repository.ErrChallengeConsumed, http.StatusBadRequest},
        {repository.ErrProofInvalid, http.StatusBadRequest},
        {repository.ErrReservationNotFound, http.StatusNotFound},
        {repository.ErrReservationExpired, http.StatusGone},
        {repository.ErrReservationTerminal, http.StatusConflict},
        {repository.ErrForbidden, http.StatusForbidden},
        {errors.New("disk on fire"), http.StatusInternalServerError},
    }

    e := echo.New()
    for _, tc := range cases {
        req := httptest.NewRequest(http.MethodGet, "/", nil)
        rec := httptest.NewRecorder()
        c := e.NewContext(req, rec)
        if err := writeError(c, tc.err); err != nil {
            t.Fatalf("writeError(%v): %v", tc.err, err)
        }
        if rec.Code != tc.want {
            t.Errorf("writeError(%v) wrote status %d, want %d", tc.err, rec.Code, tc.want)
        }
    }
}

func TestWriteErrorRetryAfterHeader(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    err := &flashsale.RetryAfterError{After: 1500 * time.Millisecond}
    if werr := writeError(c, err); werr != nil {
        t.Fatalf("writeError: %v", werr)
    }
    if rec.Code != http.StatusTooManyRequests {
        t.Errorf("status = %d, want 429", rec.Code)
    }
    if got := rec.Header().Get("Retry-After"); got != "2" {
        t.Errorf("Retry-After = %q, want %q (rounded up)", got, "2")
    }
}
