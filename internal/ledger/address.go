package ledger

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
)

// BotSeed is the fixed tag every bot record address is derived from.
const BotSeed = "trading-bot"

// DefaultProgramID is the program identity bot records are derived under.
const DefaultProgramID = "EroGopwwQVYXgbMZigR1UvQ9xZh7fviL4897ZUvYtt2F"

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

var (
	ErrMaxSeedLengthExceeded = errors.New("seed exceeds max length")
	ErrInvalidSeeds          = errors.New("provided seeds do not result in a valid address")
)

// CreateProgramAddress hashes seeds with the program id. Results that land on
// the ed25519 curve are rejected so no private key can exist for them.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > maxSeeds {
		return PublicKey{}, ErrMaxSeedLengthExceeded
	}
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return PublicKey{}, ErrMaxSeedLengthExceeded
		}
		h.Write(s)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))
	var out PublicKey
	copy(out[:], h.Sum(nil))
	if isOnCurve(out[:]) {
		return PublicKey{}, ErrInvalidSeeds
	}
	return out, nil
}

// FindProgramAddress walks the bump from 255 down and returns the first
// off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrInvalidSeeds
}

// BotAddress derives the single record address owned by authority.
func BotAddress(authority, programID PublicKey) (PublicKey, uint8, error) {
	return FindProgramAddress([][]byte{[]byte(BotSeed), authority[:]}, programID)
}

// VerifyBotAddress recomputes the address from the stored bump.
func VerifyBotAddress(addr, authority PublicKey, bump uint8, programID PublicKey) bool {
	derived, err := CreateProgramAddress([][]byte{[]byte(BotSeed), authority[:], {bump}}, programID)
	return err == nil && derived == addr
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
