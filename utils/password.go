package utils

import "golang.org/x/crypto/bcrypt"

// CheckPassword returns nil if plain matches the stored bcrypt hash.
func CheckPassword(plain, hashed string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
