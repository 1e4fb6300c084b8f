// Package flashsale implements the admission-control and inventory core of
// the flash-sale service: proof-of-work challenges, the admission gate,
// the inventory ledger and the purchase pipeline that ties them together.
package flashsale

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "strconv"
)

// CheckProof reports whether nonce solves the puzzle at the given
// difficulty: the hexadecimal SHA-256 digest of puzzle+nonce must start
// with at least difficulty zero digits.  The check walks nibbles instead
// of formatting the digest, so a rejected submission costs one hash and
// nothing else.
func CheckProof(puzzle, nonce string, difficulty int) bool {
    sum := sha256.Sum256([]byte(puzzle + nonce))
    return hasLeadingZeroNibbles(sum[:], difficulty)
}

// hasLeadingZeroNibbles checks whether the first n hex digits of data are
// zero.  Nibbles are read high-to-low within each byte.
func hasLeadingZeroNibbles(data []byte, n int) bool {
    if n <= 0 {
        return true
    }
    count := 0
    for _, b := range data {
        if b>>4 != 0 {
            return false
        }
        count++
        if count >= n {
            return true
        }
        if b&0x0F != 0 {
            return false
        }
        count++
        if count >= n {
            return true
        }
    }
    return count >= n
}

// SolveProof brute-forces a nonce for the puzzle, trying at most
// maxAttempts candidates.  The server never calls this on the request
// path; it exists for the test suite and for load-generation tooling.
// Expected work is 16^difficulty attempts.
func SolveProof(puzzle string, difficulty, maxAttempts int) (string, bool) {
    for i := 0; i < maxAttempts; i++ {
        nonce := strconv.Itoa(i)
        if CheckProof(puzzle, nonce, difficulty) {
            return nonce, true
        }
    }
    return "", false
}

// puzzleFor derives the puzzle string for a challenge.  Mixing a server
// secret through HMAC keeps puzzles unpredictable to clients even though
// sale and user ids are public; the random salt makes every issued
// challenge distinct.
func puzzleFor(secret string, saleID, userID uint64, salt string) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(strconv.FormatUint(saleID, 10)))
    mac.Write([]byte{'|'})
    mac.Write([]byte(strconv.FormatUint(userID, 10)))
    mac.Write([]byte{'|'})
    mac.Write([]byte(salt))
    return hex.EncodeToString(mac.Sum(nil))
}
