package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"dbc/pkg/api"
	"dbc/pkg/config"
	"dbc/pkg/core"
	"dbc/pkg/monitor"
	"dbc/pkg/network"
	"dbc/pkg/sizecache"
	"dbc/pkg/storage"
)

// main 启动 HTTP 与 TCP 两个入口，共享同一张持久化 map。
func main() {
	configPath := flag.String("config", "", "path to dbc.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	log := monitor.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	if dir := dataDir(cfg.Storage.DSN); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("create data dir", "dir", dir, "err", err)
			os.Exit(1)
		}
	}

	store, err := storage.Open(cfg.Storage.DSN,
		storage.WithBusyTimeout(cfg.Storage.BusyTimeoutMs),
		storage.WithLogger(log))
	if err != nil {
		log.Error("open store", "dsn", cfg.Storage.DSN, "err", err)
		os.Exit(1)
	}
	defer func() {
		store.Close()
		sizecache.Default().InvalidateEndpoint(store.Identity())
	}()

	opts := core.OptionsFromConfig(cfg)
	opts.Logger = log
	m, err := core.NewMap[string, string](store, opts)
	if err != nil {
		log.Error("open map", "table", opts.TableName, "err", err)
		os.Exit(1)
	}
	defer m.Close()
	log.Info("map ready", "map", m.String())

	shared := core.NewSyncMap(m)
	tcp := network.NewTCPServer(shared, log)
	go func() {
		if err := tcp.Start(cfg.Server.TCPAddr); err != nil {
			log.Error("tcp server stopped", "err", err)
		}
	}()
	defer tcp.Close()

	go func() {
		if err := api.NewServer(shared, log).Start(cfg.Server.Addr); err != nil {
			log.Error("http server stopped", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
}

// dataDir 返回文件型 DSN 所在目录，内存库返回空。
func dataDir(dsn string) string {
	if dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}
