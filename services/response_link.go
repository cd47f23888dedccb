package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResponseClaims identify the oficio and institution a professional answers for
type ResponseClaims struct {
	OficioID      string `json:"oficio_id"`
	InstitucionID string `json:"institucion_id"`
	jwt.RegisteredClaims
}

// IssueResponseLink signs a token letting a professional of institucionID answer oficioID
func IssueResponseLink(secret, oficioID, institucionID string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("response link secret not configured")
	}
	claims := ResponseClaims{
		OficioID:      oficioID,
		InstitucionID: institucionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   oficioID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseResponseLink verifies a response token. Any failure yields ErrInvalidLink.
func ParseResponseLink(secret, token string, now time.Time) (*ResponseClaims, error) {
	claims := &ResponseClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid || claims.OficioID == "" || claims.InstitucionID == "" {
		return nil, ErrInvalidLink
	}
	return claims, nil
}
