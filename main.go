package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/dngg/dngg-frontend-go/client"
	"github.com/dngg/dngg-frontend-go/internal"
	"github.com/dngg/dngg-frontend-go/model"
	"github.com/dngg/dngg-frontend-go/record"
	"github.com/dngg/dngg-frontend-go/server"
	"github.com/dngg/dngg-frontend-go/stats"
	"github.com/dngg/dngg-frontend-go/store"
	"gorm.io/gorm/clause"
)

// refreshCatalog mirrors the backend group and log item catalogs into the
// local database so the UI keeps its navigation while the backend is down.
func refreshCatalog(ctx context.Context, d internal.Dependencies, gw *client.Client) error {
	slog.Info("refreshing group and log item catalogs in database")
	groups, err := gw.Groups(ctx)
	if err != nil {
		return err
	}
	if len(groups) > 0 {
		cached := make([]model.CachedGroup, 0, len(groups))
		for _, g := range groups {
			cached = append(cached, model.CachedGroup{ID: g.ID, Name: g.Name, Description: g.Description})
		}
		if err := d.Database(ctx).Clauses(clause.OnConflict{
			UpdateAll: true,
		}).Create(&cached).Error; err != nil {
			return err
		}
	}

	for _, g := range groups {
		items, err := gw.LogItems(ctx, g.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			continue
		}
		cached := make([]model.CachedLogItem, 0, len(items))
		for _, it := range items {
			cached = append(cached, model.CachedLogItem{
				ID:      it.ID,
				GroupID: it.GroupID,
				Name:    it.Name,
				Value:   it.Value,
			})
		}
		if err := d.Database(ctx).Clauses(clause.OnConflict{
			UpdateAll: true,
		}).Create(&cached).Error; err != nil {
			return err
		}
	}

	slog.Info("group and log item catalogs have been refreshed in database")
	return nil
}

// scheduleCatalogRefresh registers the periodic refresh and starts the
// scheduler; registration alone leaves the job dormant.
func scheduleCatalogRefresh(ctx context.Context, d internal.Dependencies, gw *client.Client) error {
	_, err := d.Cron().AddFunc(internal.Config().Recorder.CatalogRefreshSpec, func() {
		if err := refreshCatalog(ctx, d, gw); err != nil {
			slog.Warn("scheduled catalog refresh failed : " + err.Error())
		}
	})
	if err != nil {
		return err
	}
	d.Cron().Start()
	return nil
}

func die(d interface{}) {
	slog.Error("%v", d)
	panic(d)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	deps, err := internal.NewDependencies(ctx)
	if err != nil {
		die(err)
	}

	auth, err := store.NewAuthStore(ctx, deps)
	if err != nil {
		die(err)
	}
	groups, err := store.NewGroupStore(ctx, deps)
	if err != nil {
		die(err)
	}
	teams := store.NewTeamStore(deps)

	cfg := internal.Config()
	gw := client.New(cfg.Backend.BaseURL, time.Duration(cfg.Backend.TimeoutMs)*time.Millisecond, auth)

	go func() {
		if err := refreshCatalog(ctx, deps, gw); err != nil {
			slog.Warn("initial catalog refresh failed : " + err.Error())
		}
	}()
	if err := scheduleCatalogRefresh(ctx, deps, gw); err != nil {
		die(err)
	}
	defer deps.Cron().Stop()

	st := stats.NewController(gw)
	rec := record.NewRegistry(gw)

	s, err := server.NewServer(deps, gw, auth, groups, teams, st, rec)
	if err != nil {
		die(err)
	}

	sErr := s.Start(ctx)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	select {
	case <-c:
		cancel()
		return
	case err = <-sErr:
		if err != nil {
			slog.Error(err.Error())
		}
		slog.Info("exiting service")
		return
	case <-ctx.Done():
		slog.Info("main context has been closed")
		return
	}
}
