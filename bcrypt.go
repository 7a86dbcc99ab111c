package sessionauth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret will generate a one-way, salted hash for a local secret
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(secret), secretHashCost())
	return string(h), err
}

// CompareSecretAndHash will validate the given cleartext secret matches the
// stored hash. The comparison runs in constant time.
func CompareSecretAndHash(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}
