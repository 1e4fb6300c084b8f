package flashsale

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/iliyamo/flash-sale/internal/repository"
    "github.com/iliyamo/flash-sale/internal/testutil"
)

func TestAdmissionGateIdempotencyLifecycle(t *testing.T) {
    rdb := testutil.NewTestRedis(t)
    cfg := testSaleConfig()
    gate := NewAdmissionGate(rdb, cfg)
    ctx := context.Background()

    // First claim owns the attempt.
    prior, err := gate.Admit(ctx, 1, 10, "key-a")
    if err != nil {
        t.Fatalf("first admit: %v", err)
    }
    if prior != nil {
        t.Fatalf("fresh key returned a prior decision: %+v", prior)
    }

    // Same key while in flight is a duplicate.
    if _, err := gate.Admit(ctx, 1, 10, "key-a"); !errors.Is(err, repository.ErrDuplicateRequest) {
        t.Fatalf("in-flight duplicate: got %v, want ErrDuplicateRequest", err)
    }

    // After resolution every retry replays the decision verbatim.
    want := Decision{Outcome: OutcomeOK, ReservationID: 99, ExpiresAt: time.Now().UTC().Add(time.Minute).Truncate(time.Second)}
    if err := gate.Resolve(ctx, 1, "key-a", want); err != nil {
        t.Fatalf("resolve: %v", err)
    }
    got, err := gate.Admit(ctx, 1, 10, "key-a")
    if err != nil {
        t.Fatalf("replay admit: %v", err)
    }
    if got == nil || got.Outcome != want.Outcome || got.ReservationID != want.ReservationID {
        t.Fatalf("replayed decision = %+v, want %+v", got, want)
    }

    // Distinct keys and distinct users are independent attempts.
    if prior, err := gate.Admit(ctx, 1, 10, "key-b"); err != nil || prior != nil {
        t.Fatalf("new key: prior=%+v err=%v", prior, err)
    }
    if prior, err := gate.Admit(ctx, 2, 10, "key-a"); err != nil || prior != nil {
        t.Fatalf("other user, same key: prior=%+v err=%v", prior, err)
    }
}

func TestAdmissionGateAbandonFreesKey(t *testing.T) {
    rdb := testutil.NewTestRedis(t)
    gate := NewAdmissionGate(rdb, testSaleConfig())
    ctx := context.Background()

    if _, err := gate.Admit(ctx, 5, 10, "retry-key"); err != nil {
        t.Fatalf("admit: %v", err)
    }
    gate.Abandon(ctx, 5, "retry-key")

    // The same logical attempt may claim again after an internal failure.
    prior, err := gate.Admit(ctx, 5, 10, "retry-key")
    if err != nil {
        t.Fatalf("re-admit after abandon: %v", err)
    }
    if prior != nil {
        t.Fatalf("abandoned key still resolved: %+v", prior)
    }
}

func TestAdmissionGateUserBudget(t *testing.T) {
    rdb := testutil.NewTestRedis(t)
    cfg := testSaleConfig()
    cfg.UserRateLimit = 3
    cfg.RateLimit = 1000
    gate := NewAdmissionGate(rdb, cfg)
    ctx := context.Background()

    for i := 0; i < 3; i++ {
        key := "budget-" + string(rune('a'+i))
        if _, err := gate.Admit(ctx, 77, 10, key); err != nil {
            t.Fatalf("attempt %d rejected early: %v", i, err)
        }
    }

    _, err := gate.Admit(ctx, 77, 10, "budget-over")
    if !errors.Is(err, repository.ErrRateLimited) {
        t.Fatalf("over budget: got %v, want ErrRateLimited", err)
    }
    var retry *RetryAfterError
    if !errors.As(err, &retry) {
        t.Fatal("rate limit error carries no retry hint")
    }
    if retry.After < 0 {
        t.Errorf("negative retry hint: %s", retry.After)
    }

    // Another user still has a full bucket.
    if _, err := gate.Admit(ctx, 78, 10, "other-user"); err != nil {
        t.Fatalf("unrelated user blocked: %v", err)
    }
}
