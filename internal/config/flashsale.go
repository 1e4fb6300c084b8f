package config

import "time"

// FlashSaleConfig groups the knobs that shape behaviour under sale traffic.
// All values are explicit configuration rather than runtime-mutated globals
// so behaviour stays reproducible in tests.
//
// Difficulty is measured in leading zero hex digits of the proof digest, so
// each +1 multiplies the client's expected solve cost by 16 while the
// server-side check stays a single hash.
type FlashSaleConfig struct {
    BaseDifficulty int           // difficulty when a sale is quiet
    MaxDifficulty  int           // hard ceiling for adaptive difficulty
    RateWindow     time.Duration // sampling window for per-sale request rates
    RateLimit      int           // requests per window before difficulty scales / gate rejects
    UserRateLimit  int           // per-user purchase attempts per window
    ChallengeTTL   time.Duration // lifetime of an unsolved challenge
    ReservationTTL time.Duration // lifetime of a PENDING reservation
    ReapInterval   time.Duration // how often the reaper scans for expired holds
    IdempotencyTTL time.Duration // how long resolved purchase decisions are remembered
    MaxQuantity    int           // largest quantity a single purchase may request
}

// LoadFlashSaleConfig reads the flash-sale tuning knobs from the
// environment, falling back to defaults that suit a small deployment.
// Values are clamped so a bad environment cannot disable the protections.
func LoadFlashSaleConfig() FlashSaleConfig {
    cfg := FlashSaleConfig{
        BaseDifficulty: envInt("POW_BASE_DIFFICULTY", 4),
        MaxDifficulty:  envInt("POW_MAX_DIFFICULTY", 6),
        RateWindow:     envDur("SALE_RATE_WINDOW", 10*time.Second),
        RateLimit:      envInt("SALE_RATE_LIMIT", 500),
        UserRateLimit:  envInt("USER_RATE_LIMIT", 5),
        ChallengeTTL:   envDur("CHALLENGE_TTL", 90*time.Second),
        ReservationTTL: envDur("RESERVATION_TTL", 5*time.Minute),
        ReapInterval:   envDur("REAP_INTERVAL", 15*time.Second),
        IdempotencyTTL: envDur("IDEMPOTENCY_TTL", 30*time.Minute),
        MaxQuantity:    envInt("MAX_PURCHASE_QUANTITY", 10),
    }
    if cfg.BaseDifficulty < 1 { cfg.BaseDifficulty = 1 }
    if cfg.MaxDifficulty < cfg.BaseDifficulty { cfg.MaxDifficulty = cfg.BaseDifficulty }
    if cfg.RateWindow <= 0 { cfg.RateWindow = 10 * time.Second }
    if cfg.RateLimit < 1 { cfg.RateLimit = 1 }
    if cfg.UserRateLimit < 1 { cfg.UserRateLimit = 1 }
    if cfg.ChallengeTTL <= 0 { cfg.ChallengeTTL = 90 * time.Second }
    if cfg.ReservationTTL <= 0 { cfg.ReservationTTL = 5 * time.Minute }
    if cfg.ReapInterval <= 0 { cfg.ReapInterval = 15 * time.Second }
    if cfg.IdempotencyTTL < cfg.ReservationTTL {
        // A retry arriving after its reservation expired must still see the
        // original decision instead of decrementing stock again.
        cfg.IdempotencyTTL = 2 * cfg.ReservationTTL
    }
    if cfg.MaxQuantity < 1 { cfg.MaxQuantity = 1 }
    return cfg
}
