package flashsale

import (
    "context"
    "errors"

    "github.com/iliyamo/flash-sale/internal/config"
    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/repository"
)

// PurchaseRequest is one authenticated purchase attempt.  UserID comes
// from the access token, never from the request body.
type PurchaseRequest struct {
    SaleID         uint64
    UserID         uint64
    Quantity       uint32
    ChallengeID    string
    Nonce          string
    IdempotencyKey string
}

// Orchestrator glues the purchase pipeline together:
// admission gate -> proof verifier -> inventory ledger.  Stage order is
// deliberate: the cheap rejections run first so the overwhelming majority
// of non-serious attempts never reach the contended sale row.
type Orchestrator struct {
    gate     *AdmissionGate
    verifier *Verifier
    ledger   *Ledger
    sampler  *RateSampler
    cfg      config.FlashSaleConfig
}

func NewOrchestrator(gate *AdmissionGate, verifier *Verifier, ledger *Ledger, sampler *RateSampler, cfg config.FlashSaleConfig) *Orchestrator {
    return &Orchestrator{gate: gate, verifier: verifier, ledger: ledger, sampler: sampler, cfg: cfg}
}

// outcomeCodes maps expected pipeline errors to the codes stored in
// idempotency records.  InternalError-class failures are deliberately
// absent: they abandon the in-flight marker instead of resolving, so the
// client can retry the same logical attempt.
var outcomeCodes = map[error]string{
    repository.ErrSaleNotFound:      "sale_not_found",
    repository.ErrSaleNotActive:     "sale_not_active",
    repository.ErrSoldOut:           "sold_out",
    repository.ErrUserLimitExceeded: "user_limit_exceeded",
    repository.ErrChallengeNotFound: "challenge_not_found",
    repository.ErrChallengeExpired:  "challenge_expired",
    repository.ErrChallengeConsumed: "challenge_consumed",
    repository.ErrProofInvalid:      "proof_invalid",
}

// DecisionError translates a stored decision back into the pipeline error
// it recorded, or nil for a successful decision.
func DecisionError(d Decision) error {
    if d.Outcome == OutcomeOK {
        return nil
    }
    for err, code := range outcomeCodes {
        if code == d.Outcome {
            return err
        }
    }
    return errors.New("unknown stored decision: " + d.Outcome)
}

// Purchase runs one attempt through the pipeline and returns the
// reservation on success.  Every expected failure short-circuits the
// remaining stages, is recorded against the idempotency key and comes
// back as a definite taxonomy error — the caller is never left in an
// ambiguous state.
func (o *Orchestrator) Purchase(ctx context.Context, req PurchaseRequest) (model.Reservation, error) {
    if req.Quantity == 0 || req.Quantity > uint32(o.cfg.MaxQuantity) {
        return model.Reservation{}, repository.ErrUserLimitExceeded
    }

    o.sampler.Incr(ctx, req.SaleID)

    prior, err := o.gate.Admit(ctx, req.UserID, req.SaleID, req.IdempotencyKey)
    if err != nil {
        return model.Reservation{}, err
    }
    if prior != nil {
        // Retried attempt: replay the stored decision, no side effects.
        if derr := DecisionError(*prior); derr != nil {
            return model.Reservation{}, derr
        }
        return model.Reservation{
            ID:        prior.ReservationID,
            SaleID:    req.SaleID,
            UserID:    req.UserID,
            Quantity:  req.Quantity,
            Status:    model.ReservationPending,
            ExpiresAt: prior.ExpiresAt,
        }, nil
    }

    res, err := o.run(ctx, req)
    if err != nil {
        if code, expected := outcomeCodes[err]; expected {
            _ = o.gate.Resolve(ctx, req.UserID, req.IdempotencyKey, Decision{Outcome: code})
        } else {
            // Internal failure with no ledger effect recorded: free the
            // key so the same logical attempt can retry.
            o.gate.Abandon(ctx, req.UserID, req.IdempotencyKey)
        }
        return model.Reservation{}, err
    }

    if rerr := o.gate.Resolve(ctx, req.UserID, req.IdempotencyKey, Decision{
        Outcome:       OutcomeOK,
        ReservationID: res.ID,
        ExpiresAt:     res.ExpiresAt,
    }); rerr != nil {
        // The reservation exists; a failed record only costs a retry the
        // duplicate answer. Surface nothing to the buyer.
        _ = rerr
    }
    return res, nil
}

// run executes the verifier and ledger stages.
func (o *Orchestrator) run(ctx context.Context, req PurchaseRequest) (model.Reservation, error) {
    saleID, userID, err := o.verifier.Verify(ctx, req.ChallengeID, req.Nonce)
    if err != nil {
        return model.Reservation{}, err
    }
    // A proof minted for another sale or user is not a valid proof here.
    if saleID != req.SaleID || userID != req.UserID {
        return model.Reservation{}, repository.ErrProofInvalid
    }
    return o.ledger.TryReserve(ctx, req.SaleID, req.UserID, req.Quantity)
}
