package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dngg/dngg-frontend-go/client"
	"github.com/dngg/dngg-frontend-go/model"
	"github.com/dngg/dngg-frontend-go/model/dnapi"
	"github.com/dngg/dngg-frontend-go/store"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type mockDependencies struct {
	db *gorm.DB
}

func (m *mockDependencies) Database(ctx context.Context) *gorm.DB {
	return m.db
}

func (m *mockDependencies) Cron() *cron.Cron {
	return cron.New()
}

func setupHandlerTest(t *testing.T, backend http.HandlerFunc) (*server, *mockDependencies) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.GroupSelection{}, &model.CachedGroup{}, &model.CachedLogItem{}))
	deps := &mockDependencies{db: db}

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	groups, err := store.NewGroupStore(context.Background(), deps)
	assert.NoError(t, err)

	return &server{
		d:      deps,
		gw:     client.New(srv.URL, time.Second, nil),
		groups: groups,
	}, deps
}

func TestListLogItemsCachesTheCatalog(t *testing.T) {
	s, deps := setupHandlerTest(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]dnapi.LogItem{
			{ID: 10, GroupID: 1, Name: "2점슛", Value: 2},
		})
	})

	rec := httptest.NewRecorder()
	s.handleListLogItems(rec, httptest.NewRequest(http.MethodGet, "/api/logitems?groupId=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var items []dnapi.LogItem
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)

	var cached []model.CachedLogItem
	assert.NoError(t, deps.db.Find(&cached).Error)
	assert.Len(t, cached, 1)
	assert.Equal(t, "2점슛", cached[0].Name)
}

func TestListLogItemsFallsBackToCache(t *testing.T) {
	s, deps := setupHandlerTest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	})

	assert.NoError(t, deps.db.Create(&model.CachedLogItem{ID: 10, GroupID: 1, Name: "2점슛", Value: 2}).Error)
	assert.NoError(t, deps.db.Create(&model.CachedLogItem{ID: 20, GroupID: 2, Name: "득점", Value: 1}).Error)

	rec := httptest.NewRecorder()
	s.handleListLogItems(rec, httptest.NewRequest(http.MethodGet, "/api/logitems?groupId=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var items []dnapi.LogItem
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	// Only the requested group's items come back.
	assert.Len(t, items, 1)
	assert.Equal(t, 10, items[0].ID)
	assert.Equal(t, 2, items[0].Value)
}

func TestListGroupsFallsBackToCache(t *testing.T) {
	s, deps := setupHandlerTest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	})

	assert.NoError(t, deps.db.Create(&model.CachedGroup{ID: 1, Name: "club"}).Error)

	rec := httptest.NewRecorder()
	s.handleListGroups(rec, httptest.NewRequest(http.MethodGet, "/api/groups", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Groups   []dnapi.Group `json:"groups"`
		Selected int           `json:"selected"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Groups, 1)
	assert.Equal(t, "club", res.Groups[0].Name)
}
