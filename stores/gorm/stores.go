//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panyam/secrets"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to a database using one of the supported dialects,
// "sqlite" or "postgres"
func Open(dialect, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}
	return db, nil
}

// AutoMigrate runs database migrations for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{}, &SecretModel{})
}

// UserStore implements secrets.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Close releases the underlying connection pool
func (s *UserStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *UserStore) CreateUser(ctx context.Context, user *secrets.User) error {
	model := UserToModel(user)
	model.ID = uuid.NewString()
	model.CreatedAt = time.Now().UTC()
	model.Secrets = nil
	if err := s.db.WithContext(ctx).Omit("Secrets").Create(model).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("username %q: %w", user.Username, secrets.ErrAlreadyExists)
		}
		return err
	}
	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	return nil
}

func (s *UserStore) GetUserById(ctx context.Context, userId string) (*secrets.User, error) {
	return s.first(ctx, "id = ?", userId)
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*secrets.User, error) {
	return s.first(ctx, "username = ?", username)
}

func (s *UserStore) GetUserByGoogleId(ctx context.Context, googleId string) (*secrets.User, error) {
	if googleId == "" {
		return nil, secrets.ErrNotFound
	}
	return s.first(ctx, "google_id = ?", googleId)
}

func (s *UserStore) first(ctx context.Context, query string, args ...any) (*secrets.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).Preload("Secrets", orderedSecrets).First(&model, append([]any{query}, args...)...).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, secrets.ErrNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

// AppendSecret inserts one row; the user check and insert share a transaction
func (s *UserStore) AppendSecret(ctx context.Context, userId string, secret string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where("id = ?", userId).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return secrets.ErrNotFound
		}
		return tx.Create(&SecretModel{UserID: userId, Text: secret, CreatedAt: time.Now().UTC()}).Error
	})
}

func (s *UserStore) ListUsersWithSecrets(ctx context.Context) ([]*secrets.User, error) {
	var models []UserModel
	withSecrets := s.db.Model(&SecretModel{}).Select("user_id")
	err := s.db.WithContext(ctx).
		Where("id IN (?)", withSecrets).
		Order("created_at, id").
		Preload("Secrets", orderedSecrets).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*secrets.User, len(models))
	for i := range models {
		out[i] = models[i].ToUser()
	}
	return out, nil
}

func orderedSecrets(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

// isDuplicate recognises unique violations whether or not the dialector
// translates them
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}
