package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/appdex/appdex/internal/backend/appstream"
	"github.com/appdex/appdex/internal/backend/fwupd"
	"github.com/appdex/appdex/internal/backend/odrs"
	"github.com/appdex/appdex/internal/backend/pkgdb"
	"github.com/appdex/appdex/internal/catalog/cache"
	"github.com/appdex/appdex/internal/catalog/dispatch"
	"github.com/appdex/appdex/internal/catalog/refine"
	"github.com/appdex/appdex/internal/catalog/registry"
	"github.com/appdex/appdex/internal/catalog/settings"
	"github.com/appdex/appdex/pkg/conf"
	"github.com/appdex/appdex/pkg/log"
)

// Config is the on-disk configuration shape, conf.d/config.toml.
type Config struct {
	Log     log.Conf    `mapstructure:"log"`
	Catalog CatalogConf `mapstructure:"catalog"`
}

// CatalogConf selects the backend data sources.
type CatalogConf struct {
	CacheDir   string `mapstructure:"cache_dir"`
	MaxWorkers int    `mapstructure:"max_workers"`

	PackageDB    string `mapstructure:"package_db"`
	AppstreamDir string `mapstructure:"appstream_catalog"`
	OdrsServer   string `mapstructure:"odrs_server"`
	FwupdServer  string `mapstructure:"fwupd_server"`
}

// core bundles the wired-up catalog components behind the CLI commands.
type core struct {
	reg  *registry.Registry
	disp *dispatch.Dispatcher
}

// buildCore loads configuration, initializes logging and assembles the
// backend registry, refinement engine and dispatcher.
func buildCore(ctx context.Context) (*core, error) {
	var cfg Config
	if err := conf.LoadConfigFile(confDir, &cfg); err != nil {
		return nil, err
	}
	if err := log.Init(&cfg.Log); err != nil {
		return nil, errors.Wrap(err, "failed to initialize logging")
	}

	cacheDir := cfg.Catalog.CacheDir
	if cacheDir == "" {
		cacheDir = "cache"
	}
	blobs, err := cache.NewBlobStore(cacheDir)
	if err != nil {
		return nil, err
	}

	st := settings.ViperStore{}
	reg := registry.New(st)

	pkgPath := cfg.Catalog.PackageDB
	if pkgPath == "" {
		pkgPath = "packages.json"
	}
	if err := reg.Register(pkgdb.New(pkgPath)); err != nil {
		return nil, err
	}

	if cfg.Catalog.AppstreamDir != "" {
		// catalog metadata outranks the package db, so it must run after it
		if err := reg.Register(appstream.New(cfg.Catalog.AppstreamDir),
			registry.WithRunAfter(pkgdb.Name)); err != nil {
			return nil, err
		}
	}
	if cfg.Catalog.OdrsServer != "" {
		if err := reg.Register(odrs.New(cfg.Catalog.OdrsServer, blobs),
			registry.WithRunAfter(appstream.Name)); err != nil {
			return nil, err
		}
	}
	if cfg.Catalog.FwupdServer != "" {
		if err := reg.Register(fwupd.New(cfg.Catalog.FwupdServer, blobs)); err != nil {
			return nil, err
		}
	}

	if err := reg.Setup(ctx); err != nil {
		return nil, errors.Wrap(err, "backend setup failed")
	}

	engine := refine.New(reg, st)
	disp := dispatch.New(reg, engine, dispatch.Conf{MaxWorkers: cfg.Catalog.MaxWorkers})

	return &core{reg: reg, disp: disp}, nil
}

func (c *core) close(ctx context.Context) {
	c.reg.Teardown(ctx)
	log.Sync()
}
