package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateEngineerJWT generates a JWT token for an authenticated engineer
func GenerateEngineerJWT(engineerID int64, secret []byte, expiresInHours int) (string, error) {
	expiresAt := time.Now().Add(time.Duration(expiresInHours) * time.Hour)

	claims := jwt.MapClaims{
		"engineer_id": engineerID,
		"exp":         expiresAt.Unix(),
		"iat":         time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
