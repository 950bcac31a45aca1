package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lawdesk/internal/apperr"
	"lawdesk/internal/config"
	"lawdesk/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store is the data source injected into handlers. Both the Postgres and the
// fixture variants share this type, so response shapes never differ.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Now is the store's clock in UTC.
func (s *Store) Now() time.Time { return s.now() }

// OpenPostgres connects with retries, applies pool settings, migrates and
// makes sure an admin account exists.
func OpenPostgres(cfg *config.Config) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)

	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		slog.Info("connecting to database", "attempt", i, "max_attempts", maxAttempts)

		db, err = gorm.Open(postgres.Open(cfg.DBDSN), gormConfig())
		if err == nil {
			err = ping(db)
		}
		if err == nil {
			slog.Info("connected to database")
			break
		}

		slog.Warn("database connection failed", "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to db after %d attempts: %w", maxAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	s := New(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	if err := s.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, err
	}
	return s, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Warn), TranslateError: true}
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Client{},
		&models.Case{},
		&models.Task{},
		&models.Tag{},
		&models.Document{},
		&models.TimeEntry{},
		&models.Expense{},
		&models.Invoice{},
		&models.Payment{},
		&models.CalendarEvent{},
		&models.Message{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureAdmin creates the bootstrap admin when no admin exists yet.
func (s *Store) EnsureAdmin(ctx context.Context, email, password string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin := models.User{
		Email:    email,
		FullName: "Administrator",
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if err := s.CreateUser(ctx, &admin, password); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	slog.Info("created default admin user", "email", email)
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// lookupErr turns gorm's not-found into apperr.ErrNotFound.
func lookupErr(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, apperr.ErrNotFound)
	}
	return fmt.Errorf("load %s %v: %w", what, id, err)
}

// forUpdate row-locks what the query reads until the transaction ends.
// SQLite ignores the clause and serializes writers instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, apperr.ErrInvalid)...)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, apperr.ErrConflict)...)
}

func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer("%", "", "_", "").Replace(q)
	return "%" + q + "%"
}
