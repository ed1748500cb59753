package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for a staff account.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordMismatch = errors.New("password mismatch")
)

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// HashPassword validates the length and hashes with cost, falling back to bcrypt's default
// when cost is out of range.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword returns ErrPasswordMismatch when plain does not match hashed.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// CompareDecoy burns one bcrypt comparison so that unknown emails take as long to reject as
// wrong passwords.
func CompareDecoy(plain string) {
	decoyOnce.Do(func() {
		decoyHash, _ = bcrypt.GenerateFromPassword([]byte("cityflow-decoy-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(plain))
}
