package flashsale

import (
    "context"
    "encoding/json"
    "errors"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/flash-sale/internal/config"
    "github.com/iliyamo/flash-sale/internal/repository"
)

// Decision is the terminal outcome of one logical purchase attempt.  It
// is stored against the idempotency key so retries observe the original
// result instead of re-running side effects.  Outcome holds "ok" for a
// successful reservation or the taxonomy code of the expected error.
type Decision struct {
    Outcome       string    `json:"outcome"`
    ReservationID uint64    `json:"reservation_id,omitempty"`
    ExpiresAt     time.Time `json:"expires_at,omitempty"`
}

// OutcomeOK marks a decision that produced a reservation.
const OutcomeOK = "ok"

const inflightMarker = "inflight"

// bucketScript is a token bucket: state lives in a Redis hash, tokens
// refill lazily from elapsed time.  Returns {allowed, remaining tokens,
// retry-after ms}.  Counters are approximate under failover, which is
// acceptable: they shed load, they do not guard the ledger.
var bucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// AdmissionGate sheds load before anything expensive runs: a per-user and
// a per-sale token bucket, then idempotency-key dedup.  Everything lives
// in Redis so thousands of gate checks never serialize on the process.
type AdmissionGate struct {
    rdb *redis.Client
    cfg config.FlashSaleConfig
}

func NewAdmissionGate(rdb *redis.Client, cfg config.FlashSaleConfig) *AdmissionGate {
    return &AdmissionGate{rdb: rdb, cfg: cfg}
}

// RetryAfterError carries the bucket's hint for the Retry-After header.
type RetryAfterError struct {
    After time.Duration
}

func (e *RetryAfterError) Error() string { return "rate limited" }

// Unwrap lets errors.Is match repository.ErrRateLimited.
func (e *RetryAfterError) Unwrap() error { return repository.ErrRateLimited }

// Admit runs both gate checks for one purchase attempt.
//
// Returns (nil, nil) when the attempt is admitted and marked in flight;
// (decision, nil) when the idempotency key already resolved to a prior
// decision; and a repository taxonomy error when the attempt must be
// rejected.  Rejected attempts consume no challenge and never touch the
// ledger.
func (g *AdmissionGate) Admit(ctx context.Context, userID, saleID uint64, idemKey string) (*Decision, error) {
    userKey := "gate:user:" + strconv.FormatUint(userID, 10)
    if err := g.allow(ctx, userKey, g.cfg.UserRateLimit); err != nil {
        return nil, err
    }
    saleKey := "gate:sale:" + strconv.FormatUint(saleID, 10)
    if err := g.allow(ctx, saleKey, g.cfg.RateLimit); err != nil {
        return nil, err
    }

    // SET NX GET: atomically claim the key or read whoever claimed it.
    prev, err := g.rdb.SetArgs(ctx, g.idemRedisKey(userID, idemKey), inflightMarker, redis.SetArgs{
        Mode: "NX",
        Get:  true,
        TTL:  g.cfg.IdempotencyTTL,
    }).Result()
    if err == redis.Nil {
        return nil, nil // claimed: this caller owns the attempt
    }
    if err != nil {
        return nil, err
    }
    if prev == inflightMarker {
        return nil, repository.ErrDuplicateRequest
    }
    var d Decision
    if err := json.Unmarshal([]byte(prev), &d); err != nil {
        return nil, errors.New("malformed idempotency record: " + err.Error())
    }
    return &d, nil
}

// Resolve stores the terminal decision for the attempt so later retries
// with the same key observe it.
func (g *AdmissionGate) Resolve(ctx context.Context, userID uint64, idemKey string, d Decision) error {
    raw, err := json.Marshal(d)
    if err != nil {
        return err
    }
    return g.rdb.Set(ctx, g.idemRedisKey(userID, idemKey), raw, g.cfg.IdempotencyTTL).Err()
}

// Abandon removes the in-flight marker after an internal failure whose
// effect is known not to have happened, so the client may retry with the
// same key.
func (g *AdmissionGate) Abandon(ctx context.Context, userID uint64, idemKey string) {
    _ = g.rdb.Del(ctx, g.idemRedisKey(userID, idemKey)).Err()
}

func (g *AdmissionGate) idemRedisKey(userID uint64, idemKey string) string {
    return "idem:" + strconv.FormatUint(userID, 10) + ":" + idemKey
}

// allow runs the token bucket for one key.  capacity tokens refill per
// rate window.
func (g *AdmissionGate) allow(ctx context.Context, key string, capacity int) error {
    now := time.Now()
    vals, err := bucketScript.Run(ctx, g.rdb, []string{key},
        now.UnixMilli(),
        capacity,
        capacity,
        g.cfg.RateWindow.Milliseconds(),
        int64((10 * g.cfg.RateWindow) / time.Second),
    ).Result()
    if err != nil {
        return err
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 3 {
        return errors.New("unexpected rate limit script result")
    }
    allowed, _ := arr[0].(int64)
    if allowed == 1 {
        return nil
    }
    retryMs, _ := arr[2].(int64)
    return &RetryAfterError{After: time.Duration(retryMs) * time.Millisecond}
}
