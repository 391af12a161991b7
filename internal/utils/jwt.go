package utils

import (
	"errors"
	"os"
	"strconv"
	"time"

	"tierpay/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "tierpay-api"

// TerminalTokenTTL covers one cashier shift.
const TerminalTokenTTL = 12 * time.Hour

// GenerateTokens generates an access token and a refresh token for the given user claims.
// The JWT secret is expected to be set in the environment variable JWT_SECRET.
func GenerateTokens(claims *models.UserClaims) (accessToken string, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = signClaims(claims, now, 15*time.Minute, true)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = signClaims(claims, now, 7*24*time.Hour, false)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// GenerateTerminalToken issues the single long-lived token a logged-in terminal operates with.
func GenerateTerminalToken(claims *models.UserClaims) (string, error) {
	if claims.TerminalID == nil {
		return "", errors.New("terminal token requires a terminal id")
	}
	return signClaims(claims, time.Now(), TerminalTokenTTL, true)
}

func signClaims(claims *models.UserClaims, now time.Time, ttl time.Duration, withPermissions bool) (string, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return "", errors.New("JWT_SECRET not configured")
	}

	signed := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(claims.UserID), 10),
		},
		UserID:       claims.UserID,
		Email:        claims.Email,
		Role:         claims.Role,
		TerminalID:   claims.TerminalID,
		TokenVersion: claims.TokenVersion,
	}
	if withPermissions {
		signed.Permissions = claims.Permissions
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, signed).SignedString([]byte(jwtSecret))
}

// ParseToken parses and validates a JWT token string.
// It returns the token if valid, or an error if something is wrong.
func ParseToken(tokenStr string) (*jwt.Token, *models.UserClaims, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, nil, errors.New("JWT_SECRET not configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, nil, err
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, nil, errors.New("invalid token claims")
	}

	return token, claims, nil
}
