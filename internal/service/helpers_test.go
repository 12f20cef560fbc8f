package service

import (
	"time"

	"studio/api/internal/config"
)

var testEpoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		FrontendURL: "https://studio.test",
		Security: config.SecurityConfig{
			JWTSecret:       "test-secret",
			TokenTTL:        24 * time.Hour,
			BcryptCost:      4,
			LegacyPlaintext: true,
			ResetTokenTTL:   time.Hour,
			OTPTTL:          10 * time.Minute,
		},
	}
}

var (
	adminIdentity  = Identity{UserID: "admin-1", Role: "admin", SessionID: "s-admin"}
	clientIdentity = Identity{UserID: "client-1", Role: "client", SessionID: "s-client"}
)
