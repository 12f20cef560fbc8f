package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/api/internal/models"
	"studio/api/internal/security"
	"studio/api/internal/service/servicetest"
)

type authFixture struct {
	svc      *AuthService
	users    *servicetest.FakeUsers
	sessions *servicetest.FakeSessions
	mailer   *servicetest.FakeMailer
	clock    *testClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    servicetest.NewFakeUsers(),
		sessions: servicetest.NewFakeSessions(),
		mailer:   &servicetest.FakeMailer{},
		clock:    newTestClock(),
	}
	f.svc = NewAuthService(f.users, f.sessions, f.mailer, testConfig(), zerolog.Nop())
	f.svc.now = f.clock.Now
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) AuthResult {
	t.Helper()
	result, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     "Ann Client",
		Email:    email,
		Password: password,
		Phone:    "+15550100",
	})
	require.NoError(t, err)
	return result
}

func TestRegisterCreatesClientWithSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result := f.register(t, "Ann@Example.com", "secret12")

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "ann@example.com", result.User.Email)
	assert.Equal(t, models.UserRoleClient, result.User.Role)
	assert.True(t, result.User.ProfileCompleted)
	assert.NotEqual(t, []byte("secret12"), result.User.PasswordHash)

	identity, err := f.svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, identity.UserID)
	assert.Equal(t, models.UserRoleClient, identity.Role)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com", "secret12")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "ANN@example.com", Password: "different1",
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, f.users.Len())
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing email", RegisterInput{Name: "A", Password: "secret12"}},
		{"malformed email", RegisterInput{Name: "A", Email: "not-an-email", Password: "secret12"}},
		{"display name form", RegisterInput{Name: "A", Email: "A <a@example.com>", Password: "secret12"}},
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "12345"}},
		{"missing name", RegisterInput{Name: "  ", Email: "a@example.com", Password: "secret12"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.Register(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Zero(t, f.users.Len())
		})
	}
}

func TestLoginRequiresExactPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "ann@example.com", "Secret12")

	for _, attempt := range []string{"secret12", "Secret12 ", "Secret1", ""} {
		_, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: attempt})
		assert.ErrorIs(t, err, ErrInvalidCredentials, "password %q", attempt)
	}

	_, err := f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Secret12"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	result, err := f.svc.Login(ctx, LoginInput{Email: " ANN@example.com ", Password: "Secret12"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestLogoutInvalidatesOnlyThatSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	first := f.register(t, "ann@example.com", "secret12")
	second, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "secret12"})
	require.NoError(t, err)

	identity, err := f.svc.Authenticate(ctx, first.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, identity))
	require.NoError(t, f.svc.Logout(ctx, identity), "logout is idempotent")

	_, err = f.svc.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Authenticate(ctx, second.Token)
	assert.NoError(t, err)
}

func TestAuthenticateRejections(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	result := f.register(t, "ann@example.com", "secret12")

	_, err := f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrForbidden)

	forged, err := security.GenerateIdentityToken("test-secret", result.User.ID, "admin", f.clock.Now(), time.Hour)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrForbidden, "signed token without a session")

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, ErrForbidden, "expired session")
}

func TestAuthenticateRefreshesLastActive(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	result := f.register(t, "ann@example.com", "secret12")

	f.clock.Advance(time.Hour)
	identity, err := f.svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)

	sessions, err := f.svc.ListSessions(ctx, identity)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, testEpoch.Add(time.Hour), sessions[0].LastActiveAt)
}

func TestLegacyPlaintextLoginIsUpgraded(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.users.Put(models.User{
		ID:           "legacy-1",
		Name:         "Old Timer",
		Email:        "old@example.com",
		PasswordHash: []byte("plainpass"),
		Role:         models.UserRoleClient,
	})

	_, err := f.svc.Login(ctx, LoginInput{Email: "old@example.com", Password: "plainpass"})
	require.NoError(t, err)

	stored, err := f.users.GetByID(ctx, "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, security.PasswordMatchHash, security.VerifyPassword("plainpass", stored.PasswordHash, false))

	_, err = f.svc.Login(ctx, LoginInput{Email: "old@example.com", Password: "plainpass"})
	assert.NoError(t, err, "hashed password keeps working")
}

func TestLegacyPlaintextDisabled(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.cfg.Security.LegacyPlaintext = false
	f.users.Put(models.User{ID: "legacy-1", Email: "old@example.com", PasswordHash: []byte("plainpass")})

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "old@example.com", Password: "plainpass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

var resetTokenPattern = regexp.MustCompile(`reset-password\?token=([A-Za-z0-9_-]+)`)

func resetTokenFrom(t *testing.T, mailer *servicetest.FakeMailer) string {
	t.Helper()
	sent := mailer.Sent()
	require.NotEmpty(t, sent)
	match := resetTokenPattern.FindStringSubmatch(sent[len(sent)-1].Body)
	require.Len(t, match, 2)
	return match[1]
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	existing := f.register(t, "ann@example.com", "secret12")

	err := f.svc.ForgotPassword(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.mailer.Sent())
	assert.Equal(t, 1, f.users.Len())
	user, err := f.users.GetByID(ctx, existing.User.ID)
	require.NoError(t, err)
	assert.Nil(t, user.ResetTokenHash)
}

func TestResetPasswordFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "ann@example.com", "secret12")

	require.NoError(t, f.svc.ForgotPassword(ctx, "ann@example.com"))
	token := resetTokenFrom(t, f.mailer)
	assert.Contains(t, f.mailer.Sent()[0].Body, "https://studio.test/reset-password?token=")

	f.clock.Advance(30 * time.Minute)
	require.NoError(t, f.svc.ResetPassword(ctx, token, "brandnew1"))

	_, err := f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "brandnew1"})
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "secret12"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.svc.ResetPassword(ctx, token, "another12")
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "token is single use")
}

func TestResetPasswordAfterWindow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, "ann@example.com", "secret12")

	require.NoError(t, f.svc.ForgotPassword(ctx, "ann@example.com"))
	token := resetTokenFrom(t, f.mailer)

	f.clock.Advance(time.Hour)
	err := f.svc.ResetPassword(ctx, token, "brandnew1")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	_, err = f.svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "secret12"})
	assert.NoError(t, err, "old password untouched")
}

func TestForgotPasswordSurvivesMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "ann@example.com", "secret12")
	f.mailer.Err = errors.New("smtp down")

	assert.NoError(t, f.svc.ForgotPassword(context.Background(), "ann@example.com"))
}

var otpPattern = regexp.MustCompile(`code is ([0-9]{6})`)

func TestOTPVerification(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	result := f.register(t, "ann@example.com", "secret12")
	identity, err := f.svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.SendOTP(ctx, identity))
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	match := otpPattern.FindStringSubmatch(sent[0].Body)
	require.Len(t, match, 2)
	code := match[1]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, identity, wrong), ErrInvalidOrExpired)

	require.NoError(t, f.svc.VerifyOTP(ctx, identity, code))
	user, err := f.svc.Me(ctx, identity)
	require.NoError(t, err)
	assert.True(t, user.Verified)
	assert.Nil(t, user.OTPCode)

	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, identity, code), ErrInvalidOrExpired, "code is cleared")
}

func TestOTPExpires(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	result := f.register(t, "ann@example.com", "secret12")
	identity, err := f.svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.SendOTP(ctx, identity))
	code := otpPattern.FindStringSubmatch(f.mailer.Sent()[0].Body)[1]

	f.clock.Advance(10 * time.Minute)
	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, identity, code), ErrInvalidOrExpired)
}
