package services_test

import (
	"io"
	"sync"
	"testing"
	"time"

	"onlyz-dating-server/internal/database"
	"onlyz-dating-server/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// createUser inserts a user and, when given, their profile.
func createUser(t *testing.T, db *gorm.DB, username string, profile *models.Profile) models.User {
	t.Helper()
	user := models.User{
		Username:      username,
		Email:         username + "@test.com",
		PasswordHash:  "x",
		AcceptedTerms: true,
	}
	require.NoError(t, db.Create(&user).Error)
	if profile != nil {
		profile.UserID = user.ID
		require.NoError(t, db.Create(profile).Error)
		user.Profile = profile
	}
	return user
}

func dob(age int) time.Time {
	return time.Now().UTC().AddDate(-age, 0, -1)
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

// fakeMailer records deliveries instead of sending them.
type fakeMailer struct {
	mu   sync.Mutex
	sent []string // recipient addresses in delivery order
}

func (m *fakeMailer) Send(recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, recipient)
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// fakeBroadcaster records published events instead of pushing to sockets.
type fakeBroadcaster struct {
	mu     sync.Mutex
	rooms  []string
	events []interface{}
}

func (b *fakeBroadcaster) Publish(room string, event interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, room)
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) published() ([]string, []interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.rooms...), append([]interface{}(nil), b.events...)
}
