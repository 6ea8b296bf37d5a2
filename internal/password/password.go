// Package password wraps credential hashing and strength validation.
// Validation and hashing are separate concerns: Validate runs before any
// record creation, Hash accepts whatever passed validation.
package password

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-hr/aegis-identity/internal/shared"
)

// MinLength is the minimum accepted password length.
const MinLength = 8

// Validate checks password strength. It must run before creating any
// principal so that no pending account exists with unusable credentials.
func Validate(pw string) error {
	if len(pw) < MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", shared.ErrValidation, MinLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password must contain letters and digits", shared.ErrValidation)
	}
	return nil
}

// Hash produces a bcrypt hash of the password.
func Hash(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether the password matches the stored hash.
func Compare(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// dummyHash is hashed at the same cost as real credentials so a compare
// against it takes as long as a compare against a stored hash.
var dummyHash = sync.OnceValue(func() string {
	hash, err := Hash(uuid.NewString())
	if err != nil {
		panic(err)
	}
	return hash
})

// CompareDummy burns one bcrypt comparison and always reports false.
// Login paths call it when no account matched, so an unknown email costs
// the same as a wrong password and timing cannot enumerate accounts.
func CompareDummy(pw string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash()), []byte(pw))
	return false
}
