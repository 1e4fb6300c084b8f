// Package repository defines the data access layer and the sentinel error
// taxonomy shared across it. Every expected failure of the purchase
// pipeline maps to exactly one of these values so that handlers can
// translate outcomes into definite HTTP statuses with errors.Is; nothing
// in the pipeline ever surfaces an ambiguous "maybe it worked" state.
package repository

import "errors"

var (
	// ErrSaleNotFound is returned when the referenced flash sale does not
	// exist. Handlers translate this into 404.
	ErrSaleNotFound = errors.New("flash sale not found")

	// ErrSaleNotActive is returned when a challenge or purchase targets a
	// sale that has not started or has already ended. Handlers translate
	// this into 409.
	ErrSaleNotActive = errors.New("flash sale not active")

	// ErrSoldOut is returned when the ledger cannot cover the requested
	// quantity. Handlers translate this into 410 Gone.
	ErrSoldOut = errors.New("sold out")

	// ErrUserLimitExceeded is returned when a purchase would push the
	// user's PENDING+CONFIRMED quantity over the sale's per-user cap.
	// Handlers translate this into 403.
	ErrUserLimitExceeded = errors.New("per-user limit exceeded")

	// ErrRateLimited is returned by the admission gate when a user or a
	// sale exhausts its token bucket. Handlers translate this into 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrDuplicateRequest is returned when an idempotency key is already
	// in flight. Handlers translate this into 409.
	ErrDuplicateRequest = errors.New("duplicate request in flight")

	// ErrChallengeNotFound is returned when no challenge exists for the
	// submitted id. Handlers translate this into 400.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a nonce arrives after the
	// challenge's expiry; checked before any hashing. Handlers translate
	// this into 400.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrChallengeConsumed is returned when the challenge was already
	// spent, regardless of nonce correctness. Handlers translate this
	// into 400.
	ErrChallengeConsumed = errors.New("challenge already consumed")

	// ErrProofInvalid is returned when the digest of puzzle+nonce does
	// not meet the required difficulty. Handlers translate this into 400.
	ErrProofInvalid = errors.New("proof of work invalid")

	// ErrReservationNotFound is returned when the referenced reservation
	// does not exist. Handlers translate this into 404.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationExpired is returned when confirming a reservation the
	// reaper has already released. Handlers translate this into 410.
	ErrReservationExpired = errors.New("reservation expired")

	// ErrReservationTerminal is returned when cancelling or confirming a
	// reservation that is already in a terminal state other than the one
	// requested. Handlers translate this into 409.
	ErrReservationTerminal = errors.New("reservation already terminal")

	// ErrForbidden is returned when the caller does not own the resource.
	// Handlers translate this into 403.
	ErrForbidden = errors.New("forbidden")
)
