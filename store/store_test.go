package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/dngg/dngg-frontend-go/model"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type MockDependencies struct {
	db *gorm.DB
}

func (m *MockDependencies) Database(ctx context.Context) *gorm.DB {
	return m.db
}

func (m *MockDependencies) Cron() *cron.Cron {
	return cron.New()
}

func setupTest(t *testing.T) *MockDependencies {
	// A named in-memory database keeps every pooled connection on the same
	// data while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&model.AuthSession{},
		&model.GroupSelection{},
		&model.LocalTeam{},
		&model.LocalTeamPlayer{},
		&model.CachedGroup{},
		&model.CachedLogItem{},
	)
	assert.NoError(t, err)

	return &MockDependencies{db: db}
}
