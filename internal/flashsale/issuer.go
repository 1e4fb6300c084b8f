package flashsale

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "time"

    "github.com/iliyamo/flash-sale/internal/config"
    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/repository"
)

// Issuer mints single-use proof-of-work challenges bound to one
// (sale, user) pair.  Difficulty adapts to the sale's observed request
// rate within the configured bounds; issuing never touches the ledger.
type Issuer struct {
    sales   *repository.FlashSaleRepo
    store   *ChallengeStore
    sampler *RateSampler
    cfg     config.FlashSaleConfig
    secret  string
}

func NewIssuer(sales *repository.FlashSaleRepo, store *ChallengeStore, sampler *RateSampler, cfg config.FlashSaleConfig, secret string) *Issuer {
    return &Issuer{sales: sales, store: store, sampler: sampler, cfg: cfg, secret: secret}
}

// Issue creates and stores a challenge for the given sale and user.
// Preconditions: the sale exists and is ACTIVE.  The returned challenge
// carries everything the client needs to solve off-path: puzzle,
// difficulty and expiry.
func (i *Issuer) Issue(ctx context.Context, saleID, userID uint64) (model.Challenge, error) {
    sale, err := i.sales.GetByID(ctx, saleID)
    if err != nil {
        return model.Challenge{}, err
    }
    if sale.Status != model.SaleStatusActive {
        return model.Challenge{}, repository.ErrSaleNotActive
    }

    id, err := randomHex(16)
    if err != nil {
        return model.Challenge{}, err
    }
    salt, err := randomHex(16)
    if err != nil {
        return model.Challenge{}, err
    }

    observed := i.sampler.Observed(ctx, saleID)
    now := time.Now().UTC()
    ch := model.Challenge{
        ID:         id,
        SaleID:     saleID,
        UserID:     userID,
        Puzzle:     puzzleFor(i.secret, saleID, userID, salt),
        Difficulty: DifficultyForRate(observed, i.cfg),
        IssuedAt:   now,
        ExpiresAt:  now.Add(i.cfg.ChallengeTTL),
    }
    if err := i.store.Put(ctx, ch); err != nil {
        return model.Challenge{}, err
    }
    return ch, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
