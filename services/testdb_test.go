// services/testdb_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"family-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database, migrates every model and
// closes the connection when the test finishes.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Challenge{},
		&models.ChallengeAssignment{},
		&models.CompletedChallenge{},
		&models.CoinBalance{},
		&models.CoinTransaction{},
		&models.Reward{},
		&models.RewardTransaction{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// fakeMailer records outgoing mail instead of sending it.
type fakeMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *fakeMailer) SendEmail(to, subject, htmlBody string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func seedUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.NewString(),
		FullName:     name,
		Email:        email,
		PasswordHash: "x",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return &user
}

func seedGroup(t *testing.T, db *gorm.DB, creatorID string) *models.Group {
	t.Helper()
	group := models.Group{
		ID:          uuid.NewString(),
		Name:        "Test Family",
		Description: "test group",
		CreatedByID: creatorID,
	}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("failed to seed group: %v", err)
	}
	if err := db.Create(&models.GroupMember{
		ID:       uuid.NewString(),
		GroupID:  group.ID,
		UserID:   creatorID,
		JoinedAt: time.Now().UTC(),
	}).Error; err != nil {
		t.Fatalf("failed to seed creator membership: %v", err)
	}
	return &group
}

func seedMember(t *testing.T, db *gorm.DB, groupID, userID string) {
	t.Helper()
	if err := db.Create(&models.GroupMember{
		ID:       uuid.NewString(),
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}).Error; err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}
}
