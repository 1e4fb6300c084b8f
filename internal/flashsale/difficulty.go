package flashsale

import (
    "context"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/flash-sale/internal/config"
)

// DifficultyForRate maps an observed per-window request rate to a proof
// difficulty.  At or below the configured limit the base difficulty
// applies; every further 4x of traffic adds one hex digit (16x client
// work) up to the ceiling.  The function is pure so the throttle stays
// reproducible and auditable: a given rate always yields the same
// difficulty.
func DifficultyForRate(observed int64, cfg config.FlashSaleConfig) int {
    difficulty := cfg.BaseDifficulty
    threshold := int64(cfg.RateLimit)
    for observed > threshold && difficulty < cfg.MaxDifficulty {
        difficulty++
        threshold *= 4
    }
    return difficulty
}

// RateSampler counts purchase-path requests per sale in fixed Redis
// window buckets.  Counts are approximate by design: they only steer
// difficulty and load shedding, never correctness, so no locking beyond
// Redis's own INCR atomicity is needed.
type RateSampler struct {
    rdb    *redis.Client
    window time.Duration
}

func NewRateSampler(rdb *redis.Client, window time.Duration) *RateSampler {
    return &RateSampler{rdb: rdb, window: window}
}

func (s *RateSampler) bucketKey(saleID uint64, t time.Time) string {
    bucket := t.Unix() / int64(s.window/time.Second)
    return "sale_rate:" + strconv.FormatUint(saleID, 10) + ":" + strconv.FormatInt(bucket, 10)
}

// Incr records one request against the sale's current window bucket.
// Errors are swallowed: losing a sample must never fail a purchase.
func (s *RateSampler) Incr(ctx context.Context, saleID uint64) {
    key := s.bucketKey(saleID, time.Now())
    pipe := s.rdb.Pipeline()
    pipe.Incr(ctx, key)
    pipe.Expire(ctx, key, 2*s.window)
    _, _ = pipe.Exec(ctx)
}

// Observed returns the request count of the previous, completed window.
// The previous bucket is used instead of the current one so difficulty
// does not oscillate within a window.
func (s *RateSampler) Observed(ctx context.Context, saleID uint64) int64 {
    key := s.bucketKey(saleID, time.Now().Add(-s.window))
    n, err := s.rdb.Get(ctx, key).Int64()
    if err != nil {
        return 0
    }
    return n
}
