package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeStream = "stream"

	streamTokenTTL = 5 * time.Minute
)

var ErrInvalidClaims = errors.New("invalid token claims")

// Claims is the identity carried by tokens the identity service issues.
// Department assignments are not part of the token; they are looked up per
// request.
type Claims struct {
	UserID              string
	EmployeeID          string
	IsSuperAdmin        bool
	IsHRDManager        bool
	IsDepartmentManager bool
}

// Actor converts the claims into a workflow actor without managed departments.
func (c Claims) Actor() workflow.Actor {
	return workflow.Actor{
		UserID:              c.UserID,
		EmployeeID:          c.EmployeeID,
		IsSuperAdmin:        c.IsSuperAdmin,
		IsHRDManager:        c.IsHRDManager,
		IsDepartmentManager: c.IsDepartmentManager,
	}
}

type Service interface {
	GenerateAccessToken(claims Claims, ttl time.Duration) (token string, expiresAt int64, err error)
	GenerateStreamToken(claims Claims) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (Claims, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string) Service {
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) encode(claims Claims, tokenType string, expiresAt int64) (string, error) {
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":               claims.UserID,
		"employee_id":           claims.EmployeeID,
		"is_super_admin":        claims.IsSuperAdmin,
		"is_hrd_manager":        claims.IsHRDManager,
		"is_department_manager": claims.IsDepartmentManager,
		"type":                  tokenType,
		"exp":                   expiresAt,
	})
	return tokenString, err
}

// GenerateAccessToken is used by tooling and tests; production tokens come
// from the identity service and share the secret.
func (j *JWTService) GenerateAccessToken(claims Claims, ttl time.Duration) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(ttl).Unix()
	token, err = j.encode(claims, TokenTypeAccess, expiresAt)
	return token, expiresAt, err
}

// GenerateStreamToken issues a short-lived token for the event stream, which
// is opened by EventSource and cannot send headers.
func (j *JWTService) GenerateStreamToken(claims Claims) (token string, expiresIn int, err error) {
	expiresAt := time.Now().Add(streamTokenTTL).Unix()
	token, err = j.encode(claims, TokenTypeStream, expiresAt)
	if err != nil {
		return "", 0, err
	}
	return token, int(streamTokenTTL.Seconds()), nil
}

func (j *JWTService) ValidateStreamToken(tokenString string) (Claims, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return Claims{}, err
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return Claims{}, err
	}
	if tokenType, _ := claims["type"].(string); tokenType != TokenTypeStream {
		return Claims{}, jwt.ErrInvalidJWT()
	}
	return ClaimsFromMap(claims)
}

// ClaimsFromMap reads identity claims decoded by jwtauth. user_id is
// required; the role flags default to false.
func ClaimsFromMap(m map[string]interface{}) (Claims, error) {
	userID, ok := m["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, fmt.Errorf("%w: user_id is missing", ErrInvalidClaims)
	}

	c := Claims{UserID: userID}
	c.EmployeeID, _ = m["employee_id"].(string)
	c.IsSuperAdmin, _ = m["is_super_admin"].(bool)
	c.IsHRDManager, _ = m["is_hrd_manager"].(bool)
	c.IsDepartmentManager, _ = m["is_department_manager"].(bool)
	return c, nil
}
