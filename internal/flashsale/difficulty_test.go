package flashsale

import (
    "testing"
    "time"

    "github.com/iliyamo/flash-sale/internal/config"
)

func testSaleConfig() config.FlashSaleConfig {
    return config.FlashSaleConfig{
        BaseDifficulty: 4,
        MaxDifficulty:  6,
        RateWindow:     10 * time.Second,
        RateLimit:      500,
        UserRateLimit:  5,
        ChallengeTTL:   90 * time.Second,
        ReservationTTL: 5 * time.Minute,
        ReapInterval:   15 * time.Second,
        IdempotencyTTL: 30 * time.Minute,
        MaxQuantity:    10,
    }
}

func TestDifficultyForRate(t *testing.T) {
    cfg := testSaleConfig()
    cases := []struct {
        observed int64
        want     int
    }{
        {0, 4},
        {500, 4},     // at the limit: still quiet
        {501, 5},     // just over: one extra digit
        {2000, 5},    // under 4x of the new threshold
        {2001, 6},    // over 4x: second extra digit
        {1_000_000, 6}, // ceiling holds no matter the stampede
    }
    for _, tc := range cases {
        if got := DifficultyForRate(tc.observed, cfg); got != tc.want {
            t.Errorf("DifficultyForRate(%d) = %d, want %d", tc.observed, got, tc.want)
        }
    }
}

func TestDifficultyForRateDegenerateBounds(t *testing.T) {
    cfg := testSaleConfig()
    cfg.MaxDifficulty = cfg.BaseDifficulty
    if got := DifficultyForRate(1_000_000, cfg); got != cfg.BaseDifficulty {
        t.Errorf("difficulty %d escaped a pinned ceiling", got)
    }
}
