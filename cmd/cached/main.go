package main

import (
	"encoding/json"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"

	"github.com/shopdesk/datacache/internal/cache"
	"github.com/shopdesk/datacache/internal/logger"
)

type config struct {
	Socket     string        `env:"SHOPDESK_CACHE_SOCK"`
	Dir        string        `env:"SHOPDESK_CACHE_DIR"`
	MaxEntries int           `env:"SHOPDESK_CACHE_MAX_ENTRIES" envDefault:"512"`
	TTL        time.Duration `env:"SHOPDESK_CACHE_TTL"         envDefault:"15m"`
}

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		logger.Errorf("bad environment: %v", err)
		os.Exit(1)
	}
	scope := gap.NewScope(gap.User, "shopdesk")
	if cfg.Socket == "" {
		cfg.Socket = defaultScopedPath(scope, "cached.sock")
	}
	if cfg.Dir == "" {
		cfg.Dir = defaultScopedPath(scope, "cache")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		logger.Errorf("cache dir: %v", err)
		os.Exit(1)
	}
	logger.Info("cache data dir ready", "path", cfg.Dir, "size", humanize.Bytes(dirSize(cfg.Dir)))

	// Remove a stale socket from a previous run.
	_ = os.MkdirAll(filepath.Dir(cfg.Socket), 0o755)
	_ = os.Remove(cfg.Socket)

	l, err := net.Listen("unix", cfg.Socket)
	if err != nil {
		logger.Errorf("listen %s: %v", cfg.Socket, err)
		os.Exit(1)
	}
	_ = os.Chmod(cfg.Socket, 0o600)

	var (
		mu     sync.Mutex
		opened []*cache.Tiered[json.RawMessage]
	)
	srv := cache.NewServer(func(namespace string) cache.KV {
		t := cache.NewTiered[json.RawMessage](cache.TieredOptions{
			Namespace:  namespace,
			MaxEntries: cfg.MaxEntries,
			TTL:        cfg.TTL,
			Path:       filepath.Join(cfg.Dir, namespace+".db"),
		})
		mu.Lock()
		opened = append(opened, t)
		mu.Unlock()
		logger.Info("namespace opened", "namespace", namespace)
		return t
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		_ = l.Close()
	}()

	logger.Info("cache daemon listening", "socket", cfg.Socket, "max_entries", cfg.MaxEntries, "ttl", cfg.TTL)
	if err := srv.Serve(l); err != nil {
		logger.Errorf("serve: %v", err)
	}

	// Flush outstanding mirror writes before exit.
	mu.Lock()
	defer mu.Unlock()
	for _, t := range opened {
		if err := t.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
	}
	_ = os.Remove(cfg.Socket)
}

func defaultScopedPath(scope *gap.Scope, name string) string {
	if p, err := scope.DataPath(name); err == nil {
		return p
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "shopdesk", name)
}

func dirSize(dir string) uint64 {
	var total uint64
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if info, err := e.Info(); err == nil && !info.IsDir() {
			total += uint64(info.Size())
		}
	}
	return total
}
