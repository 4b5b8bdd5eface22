// Package auth issues and verifies HS256 JWTs. Access tokens are
// short-lived and stateless; refresh tokens are tracked by JTI so they can
// be rotated and revoked.
package auth

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nexuscargo/backend/internal/store"
)

var (
	ErrInvalidToken = fmt.Errorf("invalid token")
	ErrTokenRevoked = fmt.Errorf("refresh token revoked or expired")
)

// Claims carried by both token kinds. Kind distinguishes access from
// refresh so one cannot be used in place of the other.
type Claims struct {
	TenantID string `json:"tid"`
	Role     string `json:"role,omitempty"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type Service struct {
	store      store.Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *log.Logger
}

func NewService(st store.Store, secret []byte, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      st,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     log.New(log.Writer(), "[AUTH] ", log.LstdFlags),
	}
}

// Bootstrap ensures the tenant, user and membership exist, then issues a
// token pair. Dev-friendly login: identity comes from the request, trust
// comes from the signing secret.
func (s *Service) Bootstrap(ctx context.Context, tenantID, tenantName, email, role string) (*TokenPair, error) {
	if role == "" {
		role = "member"
	}
	var user *store.User
	err := s.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.EnsureTenant(ctx, tenantID, tenantName); err != nil {
			return err
		}
		var err error
		user, err = st.EnsureUser(ctx, email)
		if err != nil {
			return err
		}
		return st.EnsureMembership(ctx, tenantID, user.ID, role)
	})
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, tenantID, user.ID, role)
}

func (s *Service) issuePair(ctx context.Context, tenantID, userID, role string) (*TokenPair, error) {
	now := time.Now().UTC()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID: tenantID,
		Role:     role,
		Kind:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	accessStr, err := access.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	jti := store.NewID("rft")
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID: tenantID,
		Kind:     "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	})
	refreshStr, err := refresh.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveRefreshToken(ctx, &store.RefreshToken{
		JTI:       jti,
		TenantID:  tenantID,
		UserID:    userID,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// Refresh rotates the refresh token: the presented JTI is revoked and a
// fresh pair is issued. A revoked or expired JTI is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != "refresh" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	rec, err := s.store.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	now := time.Now().UTC()
	if rec.RevokedAt != nil || now.After(rec.ExpiresAt) {
		return nil, ErrTokenRevoked
	}

	if err := s.store.RevokeRefreshToken(ctx, claims.ID); err != nil {
		return nil, err
	}

	role := claims.Role
	if role == "" {
		role = "member"
	}
	return s.issuePair(ctx, rec.TenantID, rec.UserID, role)
}

// Revoke invalidates a refresh token by its JTI.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return ErrInvalidToken
	}
	return s.store.RevokeRefreshToken(ctx, claims.ID)
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(tokenStr string) (*Claims, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != "access" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
