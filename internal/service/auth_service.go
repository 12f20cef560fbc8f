package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/api/internal/config"
	"studio/api/internal/ids"
	studiomail "studio/api/internal/mail"
	"studio/api/internal/models"
	"studio/api/internal/repository"
	"studio/api/internal/security"
)

const (
	minPasswordLen = 6
	otpDigits      = 6
	resetTokenLen  = 32
)

type AuthService struct {
	users    UserStore
	sessions SessionStore
	mailer   studiomail.Mailer
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	mailer studiomail.Mailer,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		mailer:   mailer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Phone     string
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	Token string
	User  models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return AuthResult{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return AuthResult{}, invalidInput("name is required")
	}
	if len(input.Password) < minPasswordLen {
		return AuthResult{}, invalidInput("password must be at least %d characters", minPasswordLen)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return AuthResult{}, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password, s.cfg.Security.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	phone := strings.TrimSpace(input.Phone)
	user := models.User{
		ID:               ids.New(),
		Name:             name,
		Email:            email,
		PasswordHash:     passwordHash,
		Phone:            phone,
		Role:             models.UserRoleClient,
		ProfileCompleted: phone != "",
		CreatedAt:        s.now().UTC(),
	}
	user.UpdatedAt = user.CreatedAt

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return AuthResult{}, err
	}

	token, err := s.createSession(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	switch security.VerifyPassword(input.Password, user.PasswordHash, s.cfg.Security.LegacyPlaintext) {
	case security.PasswordMatchHash:
	case security.PasswordMatchLegacy:
		s.upgradeLegacyPassword(ctx, user, input.Password)
	default:
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.createSession(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}

// upgradeLegacyPassword replaces a plaintext password with its hash after a
// successful legacy login. Failure only delays the upgrade to the next login.
func (s *AuthService) upgradeLegacyPassword(ctx context.Context, user models.User, password string) {
	s.log.Warn().Str("user_id", user.ID).Msg("legacy plaintext password accepted, re-hashing")
	hash, err := security.HashPassword(password, s.cfg.Security.BcryptCost)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("hash legacy password failed")
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("store upgraded password failed")
	}
}

func (s *AuthService) createSession(ctx context.Context, user models.User, ipAddress string, userAgent string) (string, error) {
	now := s.now().UTC()
	ttl := s.cfg.Security.TokenTTL

	token, err := security.GenerateIdentityToken(s.cfg.Security.JWTSecret, user.ID, string(user.Role), now, ttl)
	if err != nil {
		return "", err
	}

	session := models.Session{
		ID:           ids.New(),
		UserID:       user.ID,
		TokenHash:    security.HashToken(token),
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		IsActive:     true,
		LastActiveAt: now,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Authenticate validates a bearer token and the session it belongs to. A
// missing token is ErrUnauthorized; every other rejection is ErrForbidden.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthorized
	}

	now := s.now().UTC()
	claims, err := security.ParseIdentityToken(token, s.cfg.Security.JWTSecret, now)
	if err != nil {
		return Identity{}, ErrForbidden
	}

	session, err := s.sessions.FindActive(ctx, claims.UserID, security.HashToken(token), now)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return Identity{}, ErrForbidden
		}
		return Identity{}, err
	}

	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("refresh session activity failed")
	}

	return Identity{
		UserID:    claims.UserID,
		Role:      models.UserRole(claims.Role),
		SessionID: session.ID,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, identity Identity) error {
	return s.sessions.Deactivate(ctx, identity.SessionID)
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return invalidInput("email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	token, err := security.GenerateOpaqueToken(resetTokenLen)
	if err != nil {
		return err
	}
	expiresAt := s.now().UTC().Add(s.cfg.Security.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, security.HashTokenHex(token), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.FrontendURL, url.QueryEscape(token))
	s.deliver(ctx, studiomail.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Hello %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
			user.Name, s.cfg.Security.ResetTokenTTL, link,
		),
	}, user.ID)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpired
	}
	if len(newPassword) < minPasswordLen {
		return invalidInput("password must be at least %d characters", minPasswordLen)
	}

	user, err := s.users.FindByResetToken(ctx, security.HashTokenHex(token), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidOrExpired
		}
		return err
	}

	hash, err := security.HashPassword(newPassword, s.cfg.Security.BcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

func (s *AuthService) SendOTP(ctx context.Context, identity Identity) error {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	code, err := security.GenerateOTP(otpDigits)
	if err != nil {
		return err
	}
	if err := s.users.SetOTP(ctx, user.ID, code, s.now().UTC().Add(s.cfg.Security.OTPTTL)); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	s.deliver(ctx, studiomail.Message{
		To:      user.Email,
		Subject: "Your verification code",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %s.\n", code, s.cfg.Security.OTPTTL),
	}, user.ID)
	return nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, identity Identity, code string) error {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}

	code = strings.TrimSpace(code)
	if user.OTPCode == nil || user.OTPExpiresAt == nil || code == "" {
		return ErrInvalidOrExpired
	}
	if subtle.ConstantTimeCompare([]byte(*user.OTPCode), []byte(code)) != 1 {
		return ErrInvalidOrExpired
	}
	if !s.now().Before(*user.OTPExpiresAt) {
		return ErrInvalidOrExpired
	}

	return s.users.MarkVerified(ctx, user.ID)
}

func (s *AuthService) Me(ctx context.Context, identity Identity) (models.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (s *AuthService) ListSessions(ctx context.Context, identity Identity) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, identity.UserID)
}

// deliver sends msg and downgrades failures to a log entry; the user-facing
// request still succeeds.
func (s *AuthService) deliver(ctx context.Context, msg studiomail.Message, userID string) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("subject", msg.Subject).Msg("mail delivery failed")
		_ = studiomail.NewLogMailer(s.log).Send(ctx, msg)
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", invalidInput("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidInput("email is invalid")
	}
	return email, nil
}
