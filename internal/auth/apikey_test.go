package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/mimir_forum/internal/models"
)

func setupAPIKeyDB(t *testing.T) (*gorm.DB, *models.User) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.APIKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := &models.User{
		Username:     "keyowner",
		Email:        "keyowner@example.edu",
		PasswordHash: "x",
		Role:         models.RoleOrganizer,
		Active:       true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return db, user
}

func TestAPIKeyRoundTrip(t *testing.T) {
	db, user := setupAPIKeyDB(t)

	plaintext, key, err := GenerateAPIKey(user.ID, "ci key", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(plaintext, APIKeyPrefix) {
		t.Fatalf("plaintext %q missing prefix %q", plaintext, APIKeyPrefix)
	}
	if key.KeyPrefix != plaintext[:11] {
		t.Errorf("display prefix %q does not match plaintext head", key.KeyPrefix)
	}
	if err := db.Create(key).Error; err != nil {
		t.Fatalf("persist key: %v", err)
	}

	claims, err := ValidateAPIKey(db, plaintext)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID.String() {
		t.Errorf("claims user = %q, want %q", claims.UserID, user.ID)
	}
	if !claims.HasRole("organizer") {
		t.Errorf("claims missing the owner's role: %v", claims.Roles)
	}
}

func TestValidateAPIKeyRejectsUnknownKey(t *testing.T) {
	db, _ := setupAPIKeyDB(t)

	if _, err := ValidateAPIKey(db, "mf_deadbeef"); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("expected ErrAPIKeyNotFound, got %v", err)
	}
}

func TestValidateAPIKeyRejectsRevoked(t *testing.T) {
	db, user := setupAPIKeyDB(t)

	plaintext, key, err := GenerateAPIKey(user.ID, "to revoke", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := db.Create(key).Error; err != nil {
		t.Fatalf("persist key: %v", err)
	}
	if err := RevokeAPIKey(db, key.ID, user.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := ValidateAPIKey(db, plaintext); !errors.Is(err, ErrAPIKeyRevoked) {
		t.Fatalf("expected ErrAPIKeyRevoked, got %v", err)
	}
}

func TestValidateAPIKeyRejectsExpired(t *testing.T) {
	db, user := setupAPIKeyDB(t)

	plaintext, key, err := GenerateAPIKey(user.ID, "expired", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := db.Create(key).Error; err != nil {
		t.Fatalf("persist key: %v", err)
	}

	if _, err := ValidateAPIKey(db, plaintext); !errors.Is(err, ErrAPIKeyExpired) {
		t.Fatalf("expected ErrAPIKeyExpired, got %v", err)
	}
}

func TestRevokeAPIKeyChecksOwnership(t *testing.T) {
	db, user := setupAPIKeyDB(t)

	_, key, err := GenerateAPIKey(user.ID, "owned", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := db.Create(key).Error; err != nil {
		t.Fatalf("persist key: %v", err)
	}

	if err := RevokeAPIKey(db, key.ID, uuid.New()); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Fatalf("expected ErrAPIKeyNotFound for foreign owner, got %v", err)
	}
}
