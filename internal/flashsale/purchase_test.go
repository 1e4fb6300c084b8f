package flashsale

import (
    "context"
    "errors"
    "testing"

    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/repository"
    "github.com/iliyamo/flash-sale/internal/testutil"
)

// newTestPipeline wires the full purchase pipeline against real MySQL and
// Redis.  Difficulty is pinned low so tests solve challenges instantly.
func newTestPipeline(t *testing.T) (*Orchestrator, *Issuer, uint64) {
    t.Helper()
    db := testutil.NewTestDB(t)
    rdb := testutil.NewTestRedis(t)
    ctx := context.Background()
    testutil.TruncateAll(t, ctx, db)

    cfg := testSaleConfig()
    cfg.BaseDifficulty = 1
    cfg.MaxDifficulty = 1
    cfg.UserRateLimit = 100
    cfg.RateLimit = 10000

    sales := repository.NewFlashSaleRepo(db)
    reservations := repository.NewReservationRepo(db)
    sampler := NewRateSampler(rdb, cfg.RateWindow)
    store := NewChallengeStore(rdb)
    issuer := NewIssuer(sales, store, sampler, cfg, "test-secret")
    verifier := NewVerifier(store)
    gate := NewAdmissionGate(rdb, cfg)
    ledger := NewLedger(sales, reservations, cfg)
    orch := NewOrchestrator(gate, verifier, ledger, sampler, cfg)

    saleID := testutil.InsertSale(t, ctx, db, "pipeline-item", 3, 3, model.SaleStatusActive)
    return orch, issuer, saleID
}

// solveFor issues a challenge for (sale, user) and returns its id plus a
// valid nonce.
func solveFor(t *testing.T, issuer *Issuer, saleID, userID uint64) (string, string) {
    t.Helper()
    ch, err := issuer.Issue(context.Background(), saleID, userID)
    if err != nil {
        t.Fatalf("issue challenge: %v", err)
    }
    nonce, ok := SolveProof(ch.Puzzle, ch.Difficulty, 1<<20)
    if !ok {
        t.Fatal("no solution found")
    }
    return ch.ID, nonce
}

func TestPurchaseHappyPathAndIdempotentRetry(t *testing.T) {
    orch, issuer, saleID := newTestPipeline(t)
    ctx := context.Background()

    chID, nonce := solveFor(t, issuer, saleID, 1)
    req := PurchaseRequest{
        SaleID:         saleID,
        UserID:         1,
        Quantity:       2,
        ChallengeID:    chID,
        Nonce:          nonce,
        IdempotencyKey: "attempt-1",
    }
    res, err := orch.Purchase(ctx, req)
    if err != nil {
        t.Fatalf("purchase: %v", err)
    }
    if res.ID == 0 || res.Status != model.ReservationPending {
        t.Fatalf("unexpected reservation: %+v", res)
    }

    // A network-level retry replays the stored decision: same reservation,
    // no second stock movement, and the consumed challenge is irrelevant.
    retry, err := orch.Purchase(ctx, req)
    if err != nil {
        t.Fatalf("retry: %v", err)
    }
    if retry.ID != res.ID {
        t.Errorf("retry reservation id = %d, want %d", retry.ID, res.ID)
    }

    // The same challenge with a fresh key is a replay attack, not a retry.
    req2 := req
    req2.IdempotencyKey = "attempt-2"
    if _, err := orch.Purchase(ctx, req2); !errors.Is(err, repository.ErrChallengeConsumed) {
        t.Errorf("challenge reuse: got %v, want ErrChallengeConsumed", err)
    }
}

func TestPurchaseSoldOutDecisionIsSticky(t *testing.T) {
    orch, issuer, saleID := newTestPipeline(t)
    ctx := context.Background()

    // Drain the 3 units of stock.
    chID, nonce := solveFor(t, issuer, saleID, 1)
    if _, err := orch.Purchase(ctx, PurchaseRequest{
        SaleID: saleID, UserID: 1, Quantity: 3,
        ChallengeID: chID, Nonce: nonce, IdempotencyKey: "drain",
    }); err != nil {
        t.Fatalf("drain purchase: %v", err)
    }

    chID2, nonce2 := solveFor(t, issuer, saleID, 2)
    late := PurchaseRequest{
        SaleID: saleID, UserID: 2, Quantity: 1,
        ChallengeID: chID2, Nonce: nonce2, IdempotencyKey: "late",
    }
    if _, err := orch.Purchase(ctx, late); !errors.Is(err, repository.ErrSoldOut) {
        t.Fatalf("late purchase: got %v, want ErrSoldOut", err)
    }
    // The rejection is recorded: the retry gets the same answer without a
    // live challenge.
    if _, err := orch.Purchase(ctx, late); !errors.Is(err, repository.ErrSoldOut) {
        t.Errorf("late retry: got %v, want ErrSoldOut", err)
    }
}

func TestPurchaseRejectsForeignChallenge(t *testing.T) {
    orch, issuer, saleID := newTestPipeline(t)
    ctx := context.Background()

    // Challenge bound to user 1 presented by user 2.
    chID, nonce := solveFor(t, issuer, saleID, 1)
    if _, err := orch.Purchase(ctx, PurchaseRequest{
        SaleID: saleID, UserID: 2, Quantity: 1,
        ChallengeID: chID, Nonce: nonce, IdempotencyKey: "stolen",
    }); !errors.Is(err, repository.ErrProofInvalid) {
        t.Errorf("stolen challenge: got %v, want ErrProofInvalid", err)
    }
}

func TestPurchaseQuantityBounds(t *testing.T) {
    orch, _, saleID := newTestPipeline(t)
    ctx := context.Background()

    if _, err := orch.Purchase(ctx, PurchaseRequest{
        SaleID: saleID, UserID: 1, Quantity: 0,
        ChallengeID: "x", Nonce: "y", IdempotencyKey: "zero",
    }); !errors.Is(err, repository.ErrUserLimitExceeded) {
        t.Errorf("zero quantity: got %v, want ErrUserLimitExceeded", err)
    }
    if _, err := orch.Purchase(ctx, PurchaseRequest{
        SaleID: saleID, UserID: 1, Quantity: 100,
        ChallengeID: "x", Nonce: "y", IdempotencyKey: "huge",
    }); !errors.Is(err, repository.ErrUserLimitExceeded) {
        t.Errorf("huge quantity: got %v, want ErrUserLimitExceeded", err)
    }
}

func TestDecisionErrorRoundTrip(t *testing.T) {
    for err, code := range outcomeCodes {
        got := DecisionError(Decision{Outcome: code})
        if !errors.Is(got, err) {
            t.Errorf("DecisionError(%q) = %v, want %v", code, got, err)
        }
    }
    if err := DecisionError(Decision{Outcome: OutcomeOK}); err != nil {
        t.Errorf("ok decision produced error %v", err)
    }
    if err := DecisionError(Decision{Outcome: "garbage"}); err == nil {
        t.Error("unknown outcome produced no error")
    }
}
