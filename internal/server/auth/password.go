package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(plain, hash string) bool
}

// PasswordHasher produces hashes that a PasswordVerifier accepts.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// Passwords verifies bcrypt and argon2id hashes and creates bcrypt ones.
type Passwords struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswords returns a Passwords that hashes with the given bcrypt cost.
func NewPasswords(cost int) *Passwords {
	return &Passwords{cost: cost}
}

// Hash returns a bcrypt hash of plain.
func (p *Passwords) Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

// Verify reports whether plain matches hash. The algorithm is taken from the
// hash prefix. Malformed or unknown hashes yield false.
//
// An empty hash stands for "no such user": a throwaway bcrypt comparison
// still runs so the call costs about as much as a real one.
func (p *Passwords) Verify(plain, hash string) bool {
	switch {
	case hash == "":
		_ = bcrypt.CompareHashAndPassword(p.dummyHash(), []byte(plain))
		return false
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
	case strings.HasPrefix(hash, "$argon2id$"):
		return verifyArgon2id(plain, hash)
	default:
		return false
	}
}

func (p *Passwords) dummyHash() []byte {
	p.dummyOnce.Do(func() {
		seed := make([]byte, 16)
		_, _ = rand.Read(seed)
		p.dummy, _ = bcrypt.GenerateFromPassword(seed, p.cost)
	})
	return p.dummy
}

// argon2id parameter ceilings; anything above is treated as malformed.
const (
	maxArgonMemory  = 1 << 21 // KiB
	maxArgonTime    = 16
	maxArgonThreads = 64
)

// verifyArgon2id checks a PHC string of the form
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key> (unpadded std base64).
func verifyArgon2id(plain, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	if memory == 0 || memory > maxArgonMemory || iterations == 0 || iterations > maxArgonTime ||
		threads == 0 || threads > maxArgonThreads {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(plain), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
