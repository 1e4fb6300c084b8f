package model

import "time"

// Challenge is a single-use proof-of-work puzzle bound to one sale and one
// user.  Challenges live in Redis with a TTL and are marked consumed
// atomically on first successful verification, so a challenge is spent at
// most once while late duplicates still get a precise answer.
//
// Difficulty counts the leading zero hex digits required of
// SHA-256(puzzle + nonce); verification is one hash, solving is expected
// O(16^difficulty) attempts on the client.
type Challenge struct {
    ID         string    `json:"challenge_id"`
    SaleID     uint64    `json:"sale_id"`
    UserID     uint64    `json:"user_id"`
    Puzzle     string    `json:"puzzle"`
    Difficulty int       `json:"difficulty"`
    IssuedAt   time.Time `json:"issued_at"`
    ExpiresAt  time.Time `json:"expires_at"`
}
