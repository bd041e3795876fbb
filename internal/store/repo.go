// Package store persists dashboard widgets behind a small repository
// API. Postgres is the production backend; SQLite covers local runs
// and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sahalkhalani/WeatherKI-backend/internal/apperr"
)

type Repo struct {
	db *gorm.DB
}

func gormConfig() *gorm.Config {
	gormLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	// TranslateError turns driver-specific unique violations into
	// gorm.ErrDuplicatedKey so duplicate detection works the same on
	// both backends.
	return &gorm.Config{TranslateError: true, Logger: gormLogger}
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{DSN: dsn}), gormConfig())
}

func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), gormConfig())
}

func New(db *gorm.DB) (*Repo, error) {
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Repo{db: db}, nil
}

func ensureSchema(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&Widget{}) {
		if err := m.CreateTable(&Widget{}); err != nil {
			return fmt.Errorf("create table widgets: %w", err)
		}
	}
	if !m.HasIndex(&Widget{}, "LocationKey") {
		if err := m.CreateIndex(&Widget{}, "LocationKey"); err != nil {
			return fmt.Errorf("create index widgets.location_key: %w", err)
		}
	}
	return nil
}

// Create persists a widget for the given location. The location is
// trimmed before storage; uniqueness is enforced case-insensitively.
func (r *Repo) Create(ctx context.Context, location string) (*Widget, error) {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return nil, apperr.New(apperr.KindValidation, "location must not be empty")
	}

	w := &Widget{
		Location:    loc,
		LocationKey: strings.ToLower(loc),
	}
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Newf(apperr.KindConflict, "a widget for %q already exists", loc)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "creating widget", err)
	}
	return w, nil
}

// List returns every widget, newest first.
func (r *Repo) List(ctx context.Context) ([]Widget, error) {
	rows := []Widget{}
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "listing widgets", err)
	}
	return rows, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Widget, error) {
	var row Widget
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "widget not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "loading widget", err)
	}
	return &row, nil
}

// Delete removes a widget by id and returns the deleted record.
func (r *Repo) Delete(ctx context.Context, id string) (*Widget, error) {
	w, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).Delete(&Widget{}, "id = ?", id)
	if res.Error != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "deleting widget", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindNotFound, "widget not found")
	}
	return w, nil
}
