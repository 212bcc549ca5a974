package services

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"wa-relay-server/pkg/logger"

	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MaxFailedLoginAttempts is the number of failed attempts before the admin login locks
	MaxFailedLoginAttempts = 5

	// LockoutDuration is how long the admin login stays locked
	LockoutDuration = 30 * time.Minute
)

var (
	// ErrInvalidCredentials indicates authentication failure
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountLocked indicates the admin login is temporarily locked
	ErrAccountLocked = errors.New("account is locked due to too many failed login attempts")

	// ErrInvalidTOTP indicates TOTP code validation failure
	ErrInvalidTOTP = errors.New("invalid TOTP code")
)

// AdminAuthService authenticates the single configured administrator.
type AdminAuthService struct {
	username     string
	passwordHash []byte
	totpSecret   string
	permissions  []string
	now          func() time.Time

	mu          sync.Mutex
	failed      int
	lockedUntil time.Time
}

// NewAdminAuthService creates the authenticator. passwordHash is a bcrypt hash;
// an empty totpSecret disables the second factor.
func NewAdminAuthService(username, passwordHash, totpSecret string, permissions []string) *AdminAuthService {
	return &AdminAuthService{
		username:     username,
		passwordHash: []byte(passwordHash),
		totpSecret:   totpSecret,
		permissions:  permissions,
		now:          time.Now,
	}
}

// HashPassword returns a bcrypt hash suitable for auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate verifies the credentials and returns the admin's permissions.
func (s *AdminAuthService) Authenticate(username, password, totpCode string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Before(s.lockedUntil) {
		logger.Warn("Authentication failed - account locked",
			zap.String("username", username),
			zap.String("event_type", "account_locked"),
		)
		return nil, ErrAccountLocked
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		s.recordFailure(now)
		logger.Warn("Authentication failed - invalid credentials",
			zap.String("username", username),
			zap.String("event_type", "failed_login"),
		)
		return nil, ErrInvalidCredentials
	}

	if s.totpSecret != "" && !totp.Validate(totpCode, s.totpSecret) {
		s.recordFailure(now)
		logger.Warn("Authentication failed - TOTP validation failed",
			zap.String("username", username),
			zap.String("event_type", "invalid_totp"),
		)
		return nil, ErrInvalidTOTP
	}

	s.failed = 0
	s.lockedUntil = time.Time{}
	logger.Info("Admin authenticated", zap.String("username", username))

	return append([]string(nil), s.permissions...), nil
}

func (s *AdminAuthService) recordFailure(now time.Time) {
	s.failed++
	if s.failed >= MaxFailedLoginAttempts {
		s.lockedUntil = now.Add(LockoutDuration)
		s.failed = 0
	}
}
