package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/golang-jwt/jwt/v4"
)

var ErrMissingJWTSecret = errors.New("missing JWT_SECRET")

// JWTValidator validates HS256 bearer credentials issued by the user management service.
type JWTValidator struct {
	secret []byte
	parser *jwt.Parser
}

var _ interfaces.ICredentialValidator = (*JWTValidator)(nil)

func NewJWTValidator(secret string) (*JWTValidator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingJWTSecret
	}
	return &JWTValidator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithJSONNumber()),
	}, nil
}

func (v *JWTValidator) Validate(credential string) (entities.CredentialClaims, error) {
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return entities.CredentialClaims{}, fmt.Errorf("%w: invalid or expired token", interfaces.ErrInvalidCredential)
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return entities.CredentialClaims{}, fmt.Errorf("%w: missing subject", interfaces.ErrInvalidCredential)
	}

	out := entities.CredentialClaims{Subject: sub}
	if exp, ok := numericClaim(claims["exp"]); ok {
		sec, frac := math.Modf(exp)
		t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		out.ExpiresAt = &t
	}
	return out, nil
}

func numericClaim(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
