package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

type backend struct {
	BaseURL   string
	TimeoutMs int
}

type server struct {
	Port      string
	StaticDir string
}

type database struct {
	Path string
	URL  string
}

type recorder struct {
	CatalogRefreshSpec string
}

func newBackend() backend {
	base := os.Getenv("API_BASE_URL")
	if base == "" {
		slog.Warn("failed to find value for API_BASE_URL, using fallback value")
		base = "http://localhost:3010"
	}
	timeout, err := strconv.Atoi(os.Getenv("API_TIMEOUT_MS"))
	if err != nil {
		slog.Warn("failed to find value for API_TIMEOUT_MS, using fallback value")
		timeout = 15 * 1000
	}
	return backend{
		BaseURL:   base,
		TimeoutMs: timeout,
	}
}

func newPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		slog.Warn("failed to find value for PORT, using fallback value")
		port = "8080"
	}
	return port
}

func newRecorder() recorder {
	spec := os.Getenv("CATALOG_REFRESH_SPEC")
	if spec == "" {
		spec = "0,30 * * * *"
	}
	return recorder{
		CatalogRefreshSpec: spec,
	}
}

type config struct {
	Backend  backend
	Server   server
	Database database
	Recorder recorder
}

var (
	mu sync.RWMutex
	c  *config
)

func LoadConfig(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Warn("no .env file found, using the process environment")
	}

	mu.Lock()
	defer mu.Unlock()
	c = &config{
		Backend: newBackend(),
		Server: server{
			Port:      newPort(),
			StaticDir: os.Getenv("STATIC_DIR"),
		},
		Database: database{
			Path: os.Getenv("DATABASE_PATH"),
			URL:  os.Getenv("DATABASE_URL"),
		},
		Recorder: newRecorder(),
	}
	slog.Info(fmt.Sprintf("'Config' initialized %v", c))
}

func init() {
	LoadConfig()
}

func Config() *config {
	mu.RLock()
	defer mu.RUnlock()
	return c
}
