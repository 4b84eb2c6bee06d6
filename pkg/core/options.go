package core

import (
	"log/slog"

	"dbc/pkg/codec"
	"dbc/pkg/config"
	"dbc/pkg/monitor"
	"dbc/pkg/sizecache"
	"dbc/pkg/storage"
)

// Options configures a container at construction.
type Options struct {
	// TableName selects the backing table. Empty means an auto-generated
	// name, in which case any existing table of that name is emptied.
	TableName           string
	DropExistingOnStart bool
	DebugMirrorColumns  bool
	// CacheSize serves Size from the shared size cache instead of counting
	// rows on every call.
	CacheSize       bool
	AccessCacheSize int

	Codecs    *codec.Registry
	SizeCache *sizecache.Cache
	Namer     *storage.Namer
	Logger    *slog.Logger
	Stats     *monitor.WorkloadStats
}

func DefaultOptions() Options {
	return Options{AccessCacheSize: 64}
}

// OptionsFromConfig maps the table section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.TableName = cfg.Table.Name
	opts.DropExistingOnStart = cfg.Table.DropExistingOnStart
	opts.DebugMirrorColumns = cfg.Table.DebugMirrorColumns
	opts.CacheSize = cfg.Table.CacheSize
	if cfg.Table.AccessCacheSize > 0 {
		opts.AccessCacheSize = cfg.Table.AccessCacheSize
	}
	return opts
}

func (o Options) withDefaults(kind string) Options {
	if o.Codecs == nil {
		o.Codecs = codec.Default()
	}
	if o.SizeCache == nil {
		o.SizeCache = sizecache.Default()
	}
	if o.Namer == nil {
		o.Namer = storage.DefaultNamer()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Stats == nil {
		o.Stats = monitor.NewWorkloadStats()
	}
	if o.AccessCacheSize <= 0 {
		o.AccessCacheSize = 64
	}
	if o.TableName == "" {
		o.TableName = o.Namer.Next(kind)
		o.DropExistingOnStart = true
	}
	return o
}
