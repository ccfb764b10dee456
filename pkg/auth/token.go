package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tenantedu/campus/pkg/domain"
)

// Token purposes. A token is only ever valid for the purpose it was
// minted with; a reset token is never accepted as a login token.
const (
	PurposeLogin         = "login"
	PurposePasswordReset = "password_reset"
)

// Default token lifetimes
const (
	DefaultTokenTTL      = 24 * time.Hour
	DefaultResetTokenTTL = time.Hour
)

// TokenConfig holds token signing configuration.
type TokenConfig struct {
	Secret        []byte
	Issuer        string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
}

// Claims represents the claims in a session or reset token. Validity is
// entirely determined by signature and expiry; there is no server-side
// session store and no revocation list.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Purpose  string `json:"purpose"`
}

// TokenService mints and verifies signed tokens.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(config TokenConfig) *TokenService {
	if config.TokenTTL == 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	if config.ResetTokenTTL == 0 {
		config.ResetTokenTTL = DefaultResetTokenTTL
	}
	return &TokenService{
		config: config,
		now:    time.Now,
	}
}

// TokenTTL returns the login token lifetime.
func (s *TokenService) TokenTTL() time.Duration {
	return s.config.TokenTTL
}

// IssueLoginToken mints a session token binding the identity and its tenant.
func (s *TokenService) IssueLoginToken(userID, tenantID uuid.UUID) (string, error) {
	return s.issue(userID, tenantID, PurposeLogin, s.config.TokenTTL)
}

// IssueResetToken mints a short-lived single-purpose password-reset token.
func (s *TokenService) IssueResetToken(userID, tenantID uuid.UUID) (string, error) {
	return s.issue(userID, tenantID, PurposePasswordReset, s.config.ResetTokenTTL)
}

func (s *TokenService) issue(userID, tenantID uuid.UUID, purpose string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
		TenantID: tenantID.String(),
		Purpose:  purpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.Secret)
}

// Verify validates a token for the given purpose and returns its claims.
// It fails closed: bad signature, malformed payload, expiry in the past,
// or a purpose mismatch all yield ErrInvalidToken.
func (s *TokenService) Verify(tokenString, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.Secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// SubjectIDs parses the identity and tenant IDs out of verified claims.
func (c *Claims) SubjectIDs() (userID, tenantID uuid.UUID, err error) {
	userID, err = uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrInvalidToken
	}
	tenantID, err = uuid.Parse(c.TenantID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrInvalidToken
	}
	return userID, tenantID, nil
}
