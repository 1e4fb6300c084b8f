package flashsale

import (
    "context"
    "time"

    "github.com/iliyamo/flash-sale/internal/repository"
)

// Verifier checks submitted proof-of-work solutions and consumes
// challenges on success.  Verification is deliberately cheap: one digest
// per submission, with the expiry check ahead of any hashing so expired
// challenges cost nothing at all.
type Verifier struct {
    store *ChallengeStore
}

func NewVerifier(store *ChallengeStore) *Verifier {
    return &Verifier{store: store}
}

// Verify validates nonce against the stored challenge.  On success the
// challenge is consumed atomically; a concurrent duplicate submission of
// the same (challenge, nonce) pair loses the consumption race and gets
// repository.ErrChallengeConsumed regardless of nonce correctness.
// It also reports the sale and user the challenge was bound to so the
// caller can reject proofs presented for the wrong sale or by the wrong
// user.
func (v *Verifier) Verify(ctx context.Context, challengeID, nonce string) (saleID, userID uint64, err error) {
    ch, err := v.store.Fetch(ctx, challengeID)
    if err != nil {
        return 0, 0, err
    }
    if time.Now().After(ch.ExpiresAt) {
        return 0, 0, repository.ErrChallengeExpired
    }
    if ch.Consumed {
        return 0, 0, repository.ErrChallengeConsumed
    }
    if !CheckProof(ch.Puzzle, nonce, ch.Difficulty) {
        return 0, 0, repository.ErrProofInvalid
    }
    won, err := v.store.Consume(ctx, challengeID)
    if err != nil {
        return 0, 0, err
    }
    if !won {
        return 0, 0, repository.ErrChallengeConsumed
    }
    return ch.SaleID, ch.UserID, nil
}
