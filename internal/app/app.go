// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package app wires the configured stores, the catalog and the HTTP API together
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/vitrine/catalog"
	"github.com/relabs-tech/vitrine/core/access"
	"github.com/relabs-tech/vitrine/core/auth"
	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/cache"
	"github.com/relabs-tech/vitrine/core/csql"
	"github.com/relabs-tech/vitrine/core/docstore"
	"github.com/relabs-tech/vitrine/core/events"
	"github.com/relabs-tech/vitrine/core/kss"
	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/core/registry"
	"github.com/relabs-tech/vitrine/web"
)

const limiterIdle = 30 * time.Minute

// App is the wired service
type App struct {
	API     *web.API
	Catalog *catalog.Service
	Auth    *auth.Service
	Cron    *cron.Cron

	closers []func() error
}

// New builds the service from cfg. Close releases the connections it opened.
func New(ctx context.Context, cfg Config) (_ *App, err error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.InitLogger(level)

	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var store baas.DocumentStore
	var accounts auth.AccountStore
	var lockouts, revoked registry.Store
	switch cfg.Store {
	case StorePostgres:
		db, err := csql.OpenWithSchema(cfg.Postgres, cfg.PostgresPassword, cfg.PostgresSchema)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if store, err = docstore.NewPostgres(ctx, db, catalog.CollectionProducts); err != nil {
			return nil, err
		}
		if accounts, err = auth.NewPostgresAccounts(ctx, db); err != nil {
			return nil, err
		}
		reg, err := registry.New(db)
		if err != nil {
			return nil, err
		}
		lockouts, revoked = reg.Accessor("login"), reg.Accessor("revoked")
	default:
		logger.Default().Warnln("using the in-memory document store, data is lost on restart")
		store = docstore.NewMemory()
		accounts = auth.NewMemoryAccounts()
		lockouts, revoked = registry.NewMemory(), registry.NewMemory()
	}

	var blobs baas.BlobStore
	var local *kss.LocalFilesystem
	switch kss.DriverType(cfg.KSSDriver) {
	case kss.DriverTypeAWSS3:
		if blobs, err = kss.NewS3(ctx, kss.S3Configuration{
			AccessID:      cfg.S3AccessID,
			AccessKey:     cfg.S3AccessKey,
			AWSBucketName: cfg.S3Bucket,
			AWSRegion:     cfg.S3Region,
			KeyPrefix:     cfg.S3KeyPrefix,
			Endpoint:      cfg.S3Endpoint,
			PublicURL:     cfg.S3PublicURL,
		}); err != nil {
			return nil, err
		}
	default:
		if local, err = kss.NewLocalFilesystem(kss.LocalConfiguration{BasePath: cfg.KSSPath}, cfg.PublicURL); err != nil {
			return nil, err
		}
		blobs = local
	}

	var productCache cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisURL, "vitrine:")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		productCache = r
	}

	publishers := events.Multi{events.Log{}}
	if cfg.KafkaBrokers != "" {
		k, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, k)
	}
	if cfg.SQSQueueURL != "" {
		q, err := events.NewSQS(ctx, events.SQSConfiguration{
			QueueURL:  cfg.SQSQueueURL,
			AWSRegion: cfg.SQSRegion,
		})
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, q)
	}
	a.closers = append(a.closers, publishers.Close)

	if a.Catalog, err = catalog.NewService(store, blobs, catalog.Config{
		WhatsAppPhone: cfg.WhatsAppPhone,
		Cache:         productCache,
		CacheTTL:      cfg.CacheTTL,
		Publisher:     publishers,
	}); err != nil {
		return nil, err
	}

	if a.Auth, err = auth.New(accounts, lockouts, revoked, auth.Config{
		Secret:         []byte(cfg.SessionSecret),
		TokenTTL:       cfg.SessionTTL,
		StateRetention: cfg.LoginStateRetention,
	}); err != nil {
		return nil, err
	}
	if cfg.AdminEmail != "" {
		if err = a.Auth.Seed(ctx, cfg.AdminEmail, cfg.AdminPassword, access.RoleAdmin); err != nil {
			return nil, err
		}
	}

	if a.API, err = web.New(&web.Builder{
		Router:         mux.NewRouter(),
		Catalog:        a.Catalog,
		Auth:           a.Auth,
		Blobs:          local,
		LoginLimiter:   web.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst),
		AllowedOrigins: cfg.origins(),
		SecureCookies:  cfg.SecureCookies,
		TrustProxy:     cfg.TrustProxy,
	}); err != nil {
		return nil, err
	}

	a.Cron = cron.New()
	if _, err = a.Catalog.ScheduleSweep(a.Cron, cfg.SweepSchedule); err != nil {
		return nil, fmt.Errorf("invalid SWEEP_SCHEDULE: %w", err)
	}
	if _, err = a.Auth.ScheduleCleanup(a.Cron, "@hourly"); err != nil {
		return nil, err
	}
	limiter := a.API.LoginLimiter()
	if _, err = a.Cron.AddFunc("@every 10m", func() { limiter.Cleanup(limiterIdle) }); err != nil {
		return nil, err
	}
	return a, nil
}

// Close stops the scheduler and releases all connections
func (a *App) Close() error {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
