package flashsale

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/repository"
    "github.com/iliyamo/flash-sale/internal/testutil"
)

func testChallenge(id string, ttl time.Duration) model.Challenge {
    now := time.Now().UTC()
    return model.Challenge{
        ID:         id,
        SaleID:     7,
        UserID:     11,
        Puzzle:     puzzleFor("test-secret", 7, 11, "salt-"+id),
        Difficulty: 1,
        IssuedAt:   now,
        ExpiresAt:  now.Add(ttl),
    }
}

func TestChallengeStorePutFetch(t *testing.T) {
    rdb := testutil.NewTestRedis(t)
    store := NewChallengeStore(rdb)
    ctx := context.Background()

    ch := testChallenge("put-fetch", time.Minute)
    if err := store.Put(ctx, ch); err != nil {
        t.Fatalf("put: %v", err)
    }
    got, err := store.Fetch(ctx, ch.ID)
    if err != nil {
        t.Fatalf("fetch: %v", err)
    }
    if got.SaleID != ch.SaleID || got.UserID != ch.UserID || got.Puzzle != ch.Puzzle || got.Difficulty != ch.Difficulty {
        t.Errorf("fetched challenge mismatch: %+v vs %+v", got, ch)
    }
    if got.Consumed {
        t.Error("fresh challenge reported consumed")
    }

    if _, err := store.Fetch(ctx, "no-such-id"); !errors.Is(err, repository.ErrChallengeNotFound) {
        t.Errorf("missing challenge: got %v, want ErrChallengeNotFound", err)
    }
}

func TestChallengeStoreConsumeOnce(t *testing.T) {
    rdb := testutil.NewTestRedis(t)
    store := NewChallengeStore(rdb)
    ctx := context.Background()

    ch := testChallenge("consume-once", time.Minute)
    if err := store.Put(ctx, ch); err != nil {
        t.Fatalf("put: %v", err)
    }

    const callers = 32
    var wg sync.WaitGroup
    wins := make(chan bool, callers)
    for i := 0; i < callers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            won, err := store.Consume(ctx, ch.ID)
            if err != nil {
                t.Errorf("consume: %v", err)
                return
            }
            wins <- won
        }()
    }
    wg.Wait()
    close(wins)

    winners := 0
    for won := range wins {
        if won {
            winners++
        }
    }
    if winners != 1 {
        t.Fatalf("got %d consumption winners, want exactly 1", winners)
    }

    if _, err := store.Consume(ctx, "no-such-id"); !errors.Is(err, repository.ErrChallengeNotFound) {
        t.Errorf("consuming missing challenge: got %v, want ErrChallengeNotFound", err)
    }
}

func TestVerifierLifecycle(t *testing.T) {
    rdb := testutil.NewTestRedis(t)
    store := NewChallengeStore(rdb)
    v := NewVerifier(store)
    ctx := context.Background()

    ch := testChallenge("verify", time.Minute)
    if err := store.Put(ctx, ch); err != nil {
        t.Fatalf("put: %v", err)
    }
    nonce, ok := SolveProof(ch.Puzzle, ch.Difficulty, 1<<20)
    if !ok {
        t.Fatal("no solution found")
    }

    // Wrong nonce must not consume the challenge.
    if _, _, err := v.Verify(ctx, ch.ID, nonce+"x"); !errors.Is(err, repository.ErrProofInvalid) {
        t.Fatalf("bad nonce: got %v, want ErrProofInvalid", err)
    }

    saleID, userID, err := v.Verify(ctx, ch.ID, nonce)
    if err != nil {
        t.Fatalf("valid proof rejected after failed attempt: %v", err)
    }
    if saleID != ch.SaleID || userID != ch.UserID {
        t.Errorf("verify binding = (%d,%d), want (%d,%d)", saleID, userID, ch.SaleID, ch.UserID)
    }

    // A second submission of the same winning proof is a replay.
    if _, _, err := v.Verify(ctx, ch.ID, nonce); !errors.Is(err, repository.ErrChallengeConsumed) {
        t.Errorf("replay: got %v, want ErrChallengeConsumed", err)
    }
}

func TestVerifierExpiredChallenge(t *testing.T) {
    rdb := testutil.NewTestRedis(t)
    store := NewChallengeStore(rdb)
    v := NewVerifier(store)
    ctx := context.Background()

    ch := testChallenge("expired", -time.Second)
    if err := store.Put(ctx, ch); err != nil {
        t.Fatalf("put: %v", err)
    }
    nonce, ok := SolveProof(ch.Puzzle, ch.Difficulty, 1<<20)
    if !ok {
        t.Fatal("no solution found")
    }
    // The key survives past logical expiry on the grace TTL, so the client
    // gets the precise "expired" answer instead of "not found".
    if _, _, err := v.Verify(ctx, ch.ID, nonce); !errors.Is(err, repository.ErrChallengeExpired) {
        t.Errorf("expired challenge: got %v, want ErrChallengeExpired", err)
    }
}
