// Password hashing utilities.
//
// BCRYPT IN ONE PARAGRAPH:
// bcrypt is deliberately slow. Each hash gets a fresh random salt, the salt is
// stored inside the hash string (the users table needs no salt column), and
// the work factor is the "cost": every +1 doubles the time a hash takes.
// Plaintext passwords never reach the store or the logs; only the string
// below does.
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost
//	 version

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
//
// COST TUNING:
// BCRYPT_COST overrides it. Aim for a hash that takes a few hundred
// milliseconds on the production machine; registration and login pay that
// once per request, an attacker pays it once per guess.
const DefaultCost = 12

// maxPasswordBytes is bcrypt's input limit.
//
// THE 72-BYTE LIMIT:
// bcrypt only looks at the first 72 bytes of its input. Two long passwords
// sharing those bytes would hash the same, so Hash rejects longer input with
// ErrPasswordTooLong instead of truncating it.
const maxPasswordBytes = 72

var (
	// ErrInvalidPassword is returned by Verify when the password does not match.
	ErrInvalidPassword = errors.New("auth: invalid password")

	// ErrPasswordTooLong is returned by Hash for input over 72 bytes.
	ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct so the cost can be injected; tests use bcrypt.MinCost to stay
// fast.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the given cost. A cost
// outside bcrypt's accepted range falls back to DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// CONSTANT-TIME COMPARISON:
// bcrypt.CompareHashAndPassword re-hashes plaintext with the salt and cost
// read from hash, then compares in constant time, so response timing does
// not reveal how much of a guess was right.
//
// Returns nil on a match and ErrInvalidPassword on a mismatch. Any other
// error means the stored hash itself is unusable.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
