package flashsale

import (
    "strings"
    "testing"
)

func TestCheckProofZeroDifficulty(t *testing.T) {
    if !CheckProof("anything", "nonce", 0) {
        t.Fatal("difficulty 0 must accept any nonce")
    }
}

func TestSolveAndCheckProof(t *testing.T) {
    for _, difficulty := range []int{1, 2, 3} {
        nonce, ok := SolveProof("test-puzzle", difficulty, 1<<22)
        if !ok {
            t.Fatalf("no solution found at difficulty %d", difficulty)
        }
        if !CheckProof("test-puzzle", nonce, difficulty) {
            t.Fatalf("solved nonce %q rejected at difficulty %d", nonce, difficulty)
        }
        // A solution at difficulty d must also pass every lower bar.
        if difficulty > 1 && !CheckProof("test-puzzle", nonce, difficulty-1) {
            t.Fatalf("nonce %q fails lower difficulty %d", nonce, difficulty-1)
        }
    }
}

func TestCheckProofRejectsWrongNonce(t *testing.T) {
    nonce, ok := SolveProof("puzzle-a", 2, 1<<20)
    if !ok {
        t.Fatal("no solution found")
    }
    if CheckProof("puzzle-a", nonce+"x", 2) {
        t.Error("mutated nonce accepted")
    }
    if CheckProof("puzzle-b", nonce, 2) {
        t.Error("nonce accepted against a different puzzle")
    }
}

func TestHasLeadingZeroNibbles(t *testing.T) {
    cases := []struct {
        data []byte
        n    int
        want bool
    }{
        {[]byte{0x00, 0xff}, 1, true},
        {[]byte{0x00, 0xff}, 2, true},
        {[]byte{0x00, 0xff}, 3, false},
        {[]byte{0x0f, 0x00}, 1, true},
        {[]byte{0x0f, 0x00}, 2, false},
        {[]byte{0xf0, 0x00}, 1, false},
        {[]byte{0x00, 0x0f}, 3, true},
        {[]byte{}, 1, false},
        {[]byte{0x12}, 0, true},
    }
    for _, tc := range cases {
        if got := hasLeadingZeroNibbles(tc.data, tc.n); got != tc.want {
            t.Errorf("hasLeadingZeroNibbles(%x, %d) = %v, want %v", tc.data, tc.n, got, tc.want)
        }
    }
}

func TestPuzzleForDeterministicAndKeyed(t *testing.T) {
    a := puzzleFor("secret", 1, 2, "salt")
    b := puzzleFor("secret", 1, 2, "salt")
    if a != b {
        t.Fatal("same inputs produced different puzzles")
    }
    if len(a) != 64 || strings.ToLower(a) != a {
        t.Fatalf("puzzle %q is not lowercase hex sha256", a)
    }
    if puzzleFor("other-secret", 1, 2, "salt") == a {
        t.Error("different secret produced the same puzzle")
    }
    if puzzleFor("secret", 1, 2, "other-salt") == a {
        t.Error("different salt produced the same puzzle")
    }
    if puzzleFor("secret", 2, 1, "salt") == a {
        t.Error("swapped sale/user ids produced the same puzzle")
    }
}
