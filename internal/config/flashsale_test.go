package config

import (
    "testing"
    "time"
)

func TestLoadFlashSaleConfigDefaults(t *testing.T) {
    cfg := LoadFlashSaleConfig()
    if cfg.BaseDifficulty != 4 || cfg.MaxDifficulty != 6 {
        t.Errorf("unexpected difficulty defaults: base=%d max=%d", cfg.BaseDifficulty, cfg.MaxDifficulty)
    }
    if cfg.ReservationTTL != 5*time.Minute {
        t.Errorf("unexpected reservation TTL: %s", cfg.ReservationTTL)
    }
    if cfg.IdempotencyTTL < cfg.ReservationTTL {
        t.Error("idempotency TTL must outlive the reservation TTL")
    }
}

func TestLoadFlashSaleConfigClampsBadValues(t *testing.T) {
    t.Setenv("POW_BASE_DIFFICULTY", "0")
    t.Setenv("POW_MAX_DIFFICULTY", "-3")
    t.Setenv("SALE_RATE_LIMIT", "0")
    t.Setenv("IDEMPOTENCY_TTL", "1s")
    t.Setenv("RESERVATION_TTL", "5m")

    cfg := LoadFlashSaleConfig()
    if cfg.BaseDifficulty < 1 {
        t.Errorf("base difficulty not clamped: %d", cfg.BaseDifficulty)
    }
    if cfg.MaxDifficulty < cfg.BaseDifficulty {
        t.Errorf("max difficulty %d below base %d", cfg.MaxDifficulty, cfg.BaseDifficulty)
    }
    if cfg.RateLimit < 1 {
        t.Errorf("rate limit not clamped: %d", cfg.RateLimit)
    }
    // A decision must be remembered at least as long as a retry can
    // plausibly arrive, which is bounded by the reservation lifetime.
    if cfg.IdempotencyTTL < cfg.ReservationTTL {
        t.Errorf("idempotency TTL %s shorter than reservation TTL %s", cfg.IdempotencyTTL, cfg.ReservationTTL)
    }
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-1")
    cfg := LoadRateLimitConfig()
    if cfg.Capacity < 1 || cfg.RefillTokens < 1 {
        t.Errorf("edge limiter not clamped: capacity=%d refill=%d", cfg.Capacity, cfg.RefillTokens)
    }
    if cfg.TTL < 5*cfg.RefillInterval {
        t.Errorf("ttl %s shorter than five refill intervals", cfg.TTL)
    }
}
