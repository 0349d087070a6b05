// Package auth implements phone-first authentication: password login,
// SMS one-time codes for verification, and JWT access tokens paired with
// rotating refresh tokens.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turfconnect/turfconnect/internal/config"
	"github.com/turfconnect/turfconnect/internal/db"
	"github.com/turfconnect/turfconnect/internal/ratelimit"
)

const (
	minPasswordLength = 8
	refreshTokenBytes = 32
)

var (
	ErrValidation         = errors.New("invalid input")
	ErrPhoneTaken         = errors.New("phone number already registered")
	ErrInvalidCredentials = errors.New("invalid phone or password")
	ErrNotVerified        = errors.New("phone number not verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrOTPInvalid         = errors.New("invalid or expired code")
	ErrRefreshInvalid     = errors.New("invalid or expired refresh token")
	ErrRateLimited        = errors.New("rate limited")
)

// RateLimitError carries the retry delay alongside ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// Clock abstracts time for token expiry and OTP lifetimes.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service owns the authentication flows against the user store.
type Service struct {
	store   *db.DB
	issuer  *TokenIssuer
	limiter *ratelimit.Limiter
	sender  Sender
	cfg     config.AuthConfig
	clock   Clock
}

func NewService(store *db.DB, cfg config.AuthConfig, limiter *ratelimit.Limiter, sender Sender) *Service {
	return &Service{
		store:   store,
		issuer:  NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL.Std()),
		limiter: limiter,
		sender:  sender,
		cfg:     cfg,
		clock:   realClock{},
	}
}

// Issuer exposes the token issuer for middleware wiring.
func (s *Service) Issuer() *TokenIssuer { return s.issuer }

// WithClock overrides the service and issuer time source. Test hook.
func (s *Service) WithClock(clock Clock) *Service {
	s.clock = clock
	s.issuer.WithClock(clock)
	return s
}

// TokenPair is the result of a successful login, OTP verification, or
// refresh.
type TokenPair struct {
	AccessToken     string    `json:"accessToken"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
	RefreshToken    string    `json:"refreshToken"`
	User            db.User   `json:"user"`
}

type RegisterInput struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	City     string `json:"city"`
	Role     string `json:"role"`
	ClientIP string `json:"-"`
}

// Register creates an unverified account and sends a verification code to its
// phone. The account cannot log in until the code is confirmed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (db.User, error) {
	phone, err := NormalizePhone(in.Phone, s.cfg.DefaultRegion)
	if err != nil {
		return db.User{}, fmt.Errorf("%w: %s", ErrValidation, "phone must be a valid number")
	}
	// Password is optional: accounts may live on OTP login alone.
	if in.Password != "" && len(in.Password) < minPasswordLength {
		return db.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return db.User{}, fmt.Errorf("%w: fullName is required", ErrValidation)
	}
	role := in.Role
	if role == "" {
		role = db.RolePlayer
	}
	// Admin accounts are provisioned out of band, never self-registered.
	if role != db.RolePlayer && role != db.RoleTurfOwner {
		return db.User{}, fmt.Errorf("%w: role must be %s or %s", ErrValidation, db.RolePlayer, db.RoleTurfOwner)
	}

	if _, err := s.store.Queries.GetUserByPhone(ctx, phone); err == nil {
		return db.User{}, ErrPhoneTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return db.User{}, err
	}

	var hash string
	if in.Password != "" {
		hash, err = hashPassword(in.Password)
		if err != nil {
			return db.User{}, err
		}
	}

	user, err := s.store.Queries.CreateUser(ctx, db.CreateUserParams{
		ID:           uuid.NewString(),
		Phone:        phone,
		Email:        nullString(strings.TrimSpace(in.Email)),
		PasswordHash: nullString(hash),
		FullName:     fullName,
		City:         nullString(strings.TrimSpace(in.City)),
		Role:         role,
		IsVerified:   false,
	})
	if err != nil {
		return db.User{}, err
	}

	if err := s.sendOTP(ctx, user.Phone, in.ClientIP); err != nil {
		// The account exists; the caller can request a fresh code.
		return user, err
	}
	return user, nil
}

// Login checks the password for a verified account and issues a token pair.
func (s *Service) Login(ctx context.Context, rawPhone, password string) (TokenPair, error) {
	phone, err := NormalizePhone(rawPhone, s.cfg.DefaultRegion)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.store.Queries.GetUserByPhone(ctx, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !user.PasswordHash.Valid || !checkPassword(user.PasswordHash.String, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return TokenPair{}, ErrNotVerified
	}

	return s.issueTokens(ctx, user)
}

// SendOTP issues a fresh one-time code to a registered phone.
func (s *Service) SendOTP(ctx context.Context, rawPhone, clientIP string) error {
	phone, err := NormalizePhone(rawPhone, s.cfg.DefaultRegion)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, "phone must be a valid number")
	}
	if _, err := s.store.Queries.GetUserByPhone(ctx, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return s.sendOTP(ctx, phone, clientIP)
}

func (s *Service) sendOTP(ctx context.Context, phone, clientIP string) error {
	if result := s.limiter.CheckOTPSend(phone, clientIP); !result.Allowed {
		ratelimit.LogRateLimitExceeded("otp_send", phone, clientIP, result.Reason)
		return &RateLimitError{RetryAfter: result.RetryAfter}
	}

	code, err := generateOTPCode()
	if err != nil {
		return err
	}
	expiresAt := s.clock.Now().Add(s.cfg.OTPTTL.Std())
	if err := s.store.Queries.UpsertOTP(ctx, phone, code, expiresAt); err != nil {
		return err
	}
	if err := s.sender.SendOTP(ctx, phone, code); err != nil {
		return fmt.Errorf("delivering OTP: %w", err)
	}

	s.limiter.RecordOTPSend(phone, clientIP)
	return nil
}

// VerifyOTP consumes a one-time code. On success the account is marked
// verified and a token pair is issued. Codes are single use: a second verify
// with the same code fails.
func (s *Service) VerifyOTP(ctx context.Context, rawPhone, code, clientIP string) (TokenPair, error) {
	phone, err := NormalizePhone(rawPhone, s.cfg.DefaultRegion)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %s", ErrValidation, "phone must be a valid number")
	}

	user, err := s.store.Queries.GetUserByPhone(ctx, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return TokenPair{}, ErrUserNotFound
	}
	if err != nil {
		return TokenPair{}, err
	}

	if result := s.limiter.CheckOTPVerify(phone, clientIP); !result.Allowed {
		ratelimit.LogRateLimitExceeded("otp_verify", phone, clientIP, result.Reason)
		return TokenPair{}, &RateLimitError{RetryAfter: result.RetryAfter}
	}
	s.limiter.RecordOTPVerify(phone, clientIP)

	ok, err := s.store.Queries.ConsumeOTP(ctx, phone, code, s.clock.Now())
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, ErrOTPInvalid
	}

	if !user.IsVerified {
		if err := s.store.Queries.MarkUserVerified(ctx, user.ID); err != nil {
			return TokenPair{}, err
		}
		user.IsVerified = true
	}
	s.limiter.ResetVerifyAttempts(phone)

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is retired and a new
// pair is issued. A reused or expired token is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	stored, err := s.store.Queries.GetRefreshToken(ctx, refreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return TokenPair{}, ErrRefreshInvalid
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !stored.ExpiresAt.After(s.clock.Now()) {
		// Expired rows are swept by the scheduler; drop this one now.
		_ = s.store.Queries.DeleteRefreshToken(ctx, refreshToken)
		return TokenPair{}, ErrRefreshInvalid
	}

	user, err := s.store.Queries.GetUser(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, ErrRefreshInvalid
		}
		return TokenPair{}, err
	}

	newToken, err := newRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}
	expiresAt := s.clock.Now().Add(s.cfg.RefreshTokenTTL.Std())
	err = s.store.RunInTx(ctx, func(txdb *db.DB) error {
		consumed, err := txdb.Queries.ConsumeRefreshToken(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !consumed {
			// Another refresh rotated this token first.
			return ErrRefreshInvalid
		}
		return txdb.Queries.CreateRefreshToken(ctx, newToken, user.ID, expiresAt)
	})
	if err != nil {
		return TokenPair{}, err
	}

	access, accessExpiry, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:     access,
		AccessExpiresAt: accessExpiry,
		RefreshToken:    newToken,
		User:            user,
	}, nil
}

// Logout retires a refresh token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.store.Queries.DeleteRefreshToken(ctx, refreshToken)
}

func (s *Service) issueTokens(ctx context.Context, user db.User) (TokenPair, error) {
	access, accessExpiry, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}
	expiresAt := s.clock.Now().Add(s.cfg.RefreshTokenTTL.Std())
	if err := s.store.Queries.CreateRefreshToken(ctx, refresh, user.ID, expiresAt); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:     access,
		AccessExpiresAt: accessExpiry,
		RefreshToken:    refresh,
		User:            user,
	}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
