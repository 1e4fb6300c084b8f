package flashsale

import (
    "context"
    "errors"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/flash-sale/internal/model"
    "github.com/iliyamo/flash-sale/internal/repository"
)

// challengeKeyPrefix namespaces challenge hashes in Redis.
const challengeKeyPrefix = "challenge:"

// consumeGrace keeps a challenge key around past its logical expiry so a
// late submission can be told "expired" instead of the less useful
// "not found".  After the grace window Redis garbage-collects the key.
const consumeGrace = 5 * time.Minute

// consumeScript marks a challenge as consumed exactly once.  Returns -1
// when the key is gone, 1 when this caller won the consumption, 0 when
// the challenge was already consumed.  HSETNX makes the winner selection
// atomic on the Redis side, which is the only serialization the
// challenge lifecycle needs.
var consumeScript = redis.NewScript(`
    if redis.call('EXISTS', KEYS[1]) == 0 then
        return -1
    end
    return redis.call('HSETNX', KEYS[1], 'consumed', '1')
`)

// ChallengeStore persists challenges in Redis hashes with a TTL.  The
// store is the single authority on whether a challenge is live, expired
// or spent.
type ChallengeStore struct {
    rdb *redis.Client
}

func NewChallengeStore(rdb *redis.Client) *ChallengeStore {
    return &ChallengeStore{rdb: rdb}
}

// storedChallenge adds the consumed flag to the wire model; the flag
// never leaves the server.
type storedChallenge struct {
    model.Challenge
    Consumed bool
}

// Put writes a freshly issued challenge.  The key TTL extends past the
// logical expiry by the grace window.
func (s *ChallengeStore) Put(ctx context.Context, ch model.Challenge) error {
    key := challengeKeyPrefix + ch.ID
    pipe := s.rdb.TxPipeline()
    pipe.HSet(ctx, key, map[string]interface{}{
        "sale_id":    strconv.FormatUint(ch.SaleID, 10),
        "user_id":    strconv.FormatUint(ch.UserID, 10),
        "puzzle":     ch.Puzzle,
        "difficulty": strconv.Itoa(ch.Difficulty),
        "issued_at":  strconv.FormatInt(ch.IssuedAt.Unix(), 10),
        "expires_at": strconv.FormatInt(ch.ExpiresAt.Unix(), 10),
    })
    pipe.Expire(ctx, key, time.Until(ch.ExpiresAt)+consumeGrace)
    _, err := pipe.Exec(ctx)
    return err
}

// Fetch loads a challenge by id.  repository.ErrChallengeNotFound is
// returned when the key has been garbage-collected or never existed.
func (s *ChallengeStore) Fetch(ctx context.Context, id string) (storedChallenge, error) {
    vals, err := s.rdb.HGetAll(ctx, challengeKeyPrefix+id).Result()
    if err != nil {
        return storedChallenge{}, err
    }
    if len(vals) == 0 {
        return storedChallenge{}, repository.ErrChallengeNotFound
    }
    var ch storedChallenge
    ch.ID = id
    ch.Puzzle = vals["puzzle"]
    ch.SaleID, _ = strconv.ParseUint(vals["sale_id"], 10, 64)
    ch.UserID, _ = strconv.ParseUint(vals["user_id"], 10, 64)
    ch.Difficulty, _ = strconv.Atoi(vals["difficulty"])
    if sec, err := strconv.ParseInt(vals["issued_at"], 10, 64); err == nil {
        ch.IssuedAt = time.Unix(sec, 0).UTC()
    }
    sec, err := strconv.ParseInt(vals["expires_at"], 10, 64)
    if err != nil {
        return storedChallenge{}, errors.New("malformed challenge record: " + id)
    }
    ch.ExpiresAt = time.Unix(sec, 0).UTC()
    ch.Consumed = vals["consumed"] == "1"
    return ch, nil
}

// Consume attempts to spend the challenge.  Exactly one concurrent caller
// observes won == true; every later caller sees won == false.
func (s *ChallengeStore) Consume(ctx context.Context, id string) (won bool, err error) {
    res, err := consumeScript.Run(ctx, s.rdb, []string{challengeKeyPrefix + id}).Int64()
    if err != nil {
        return false, err
    }
    switch res {
    case 1:
        return true, nil
    case 0:
        return false, nil
    default:
        return false, repository.ErrChallengeNotFound
    }
}
