package testutil

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"relief_backend/database"
	"relief_backend/internal/auth"
	"relief_backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var unsafeDSNChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// NewTestDB - in-memory sqlite, своя база на каждый тест
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", unsafeDSNChars.ReplaceAllString(t.Name(), "_"))
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err, "Не удалось открыть тестовую БД")
	require.NoError(t, database.AutoMigrate(db), "Не удалось выполнить миграцию тестовой БД")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// CreateUser создает пользователя с подтвержденным email.
// verified - флаг проверки респондента администратором.
func CreateUser(t *testing.T, db *gorm.DB, name, email, password string, role models.UserRole, verified bool) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err, "Не удалось хешировать пароль")

	now := time.Now()
	user := &models.User{
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		Verified:      verified,
		EmailVerified: &now,
	}
	require.NoError(t, db.Create(user).Error, "Не удалось создать пользователя %s", email)
	return user
}

// CreateIncident создает инцидент напрямую в БД
func CreateIncident(t *testing.T, db *gorm.DB, reporterID, title string, status models.IncidentStatus) *models.IncidentReport {
	t.Helper()

	incident := &models.IncidentReport{
		Title:       title,
		Description: "Test description",
		Type:        models.IncidentTypeFlood,
		Severity:    3,
		Status:      status,
		Address:     "Test street 1",
		ReporterID:  reporterID,
	}
	require.NoError(t, db.Create(incident).Error, "Не удалось создать инцидент")
	return incident
}
