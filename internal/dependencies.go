package internal

import (
	"context"
	"log/slog"

	"github.com/dngg/dngg-frontend-go/model"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type dependencies struct {
	db *gorm.DB
	c  *cron.Cron
}

type Dependencies interface {
	Database(ctx context.Context) *gorm.DB
	Cron() *cron.Cron
}

func NewDependencies(ctx context.Context) (Dependencies, error) {
	slog.Info("creating dependencies")
	slog.Info("initializing local database connection")
	db, err := openDatabase()
	if err != nil {
		return nil, err
	}
	slog.Info("executing database auto migration")
	err = db.AutoMigrate(&model.AuthSession{},
		&model.GroupSelection{},
		&model.LocalTeam{},
		&model.LocalTeamPlayer{},
		&model.CachedGroup{},
		&model.CachedLogItem{},
	)
	if err != nil {
		return nil, err
	}

	c := cron.New()

	return &dependencies{
		db: db,
		c:  c,
	}, nil
}

func openDatabase() (*gorm.DB, error) {
	if url := Config().Database.URL; url != "" {
		return gorm.Open(postgres.Open(url), &gorm.Config{})
	}
	path := Config().Database.Path
	if path == "" {
		path = "dngg.db"
	}
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}

func (d *dependencies) Database(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}

func (d *dependencies) Cron() *cron.Cron {
	return d.c
}
