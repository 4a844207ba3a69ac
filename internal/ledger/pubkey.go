package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	PublicKeySize = 32
	SignatureSize = 64
)

// PublicKey is a 32-byte ed25519 public key or a program derived address.
// Text form is base58.
type PublicKey [PublicKeySize]byte

// SystemProgramID owns every plain wallet account.
var SystemProgramID = PublicKey{}

func PublicKeyFromBase58(s string) (PublicKey, error) {
	var k PublicKey
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return k, fmt.Errorf("decode public key %q: %w", s, err)
	}
	if len(raw) != PublicKeySize {
		return k, fmt.Errorf("public key %q has %d bytes, want %d", s, len(raw), PublicKeySize)
	}
	copy(k[:], raw)
	return k, nil
}

func MustPublicKey(s string) PublicKey {
	k, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k PublicKey) String() string { return base58.Encode(k[:]) }

func (k PublicKey) IsZero() bool { return k == PublicKey{} }

func (k PublicKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PublicKey) UnmarshalText(b []byte) error {
	parsed, err := PublicKeyFromBase58(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Signature is a detached ed25519 signature; it doubles as the transaction id.
type Signature [SignatureSize]byte

func SignatureFromBase58(s string) (Signature, error) {
	var sig Signature
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return sig, fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != SignatureSize {
		return sig, fmt.Errorf("signature has %d bytes, want %d", len(raw), SignatureSize)
	}
	copy(sig[:], raw)
	return sig, nil
}

func (s Signature) String() string { return base58.Encode(s[:]) }

func (s Signature) IsZero() bool { return s == Signature{} }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = Signature{}
		return nil
	}
	parsed, err := SignatureFromBase58(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Keypair holds an ed25519 signing key.
type Keypair struct {
	priv ed25519.PrivateKey
}

func NewKeypair() (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{priv: priv}, nil
}

func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, fmt.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}
	return Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (k Keypair) PublicKey() PublicKey {
	var pk PublicKey
	if len(k.priv) == ed25519.PrivateKeySize {
		copy(pk[:], k.priv[32:])
	}
	return pk
}

func (k Keypair) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.priv, msg))
	return sig
}

// LoadKeypair reads a keypair file in the CLI wallet format: a JSON array of
// the 64 secret key bytes.
func LoadKeypair(path string) (Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("read keypair: %w", err)
	}
	var bytes []byte
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return Keypair{}, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	for _, v := range ints {
		if v < 0 || v > 255 {
			return Keypair{}, fmt.Errorf("keypair %s contains out-of-range byte %d", path, v)
		}
		bytes = append(bytes, byte(v))
	}
	if len(bytes) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("keypair %s has %d bytes, want %d", path, len(bytes), ed25519.PrivateKeySize)
	}
	kp, err := KeypairFromSeed(bytes[:ed25519.SeedSize])
	if err != nil {
		return Keypair{}, err
	}
	want := PublicKey{}
	copy(want[:], bytes[32:])
	if kp.PublicKey() != want {
		return Keypair{}, fmt.Errorf("keypair %s public half does not match secret", path)
	}
	return kp, nil
}

func (k Keypair) Save(path string) error {
	if len(k.priv) != ed25519.PrivateKeySize {
		return fmt.Errorf("keypair is empty")
	}
	ints := make([]int, len(k.priv))
	for i, b := range k.priv {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

func verifySignature(pk PublicKey, msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), msg, sig[:])
}
