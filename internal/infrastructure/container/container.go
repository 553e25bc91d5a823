package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	appcontainer "capsnap/internal/application/container"
	"capsnap/internal/application/port"
	"capsnap/internal/application/service"
	"capsnap/internal/application/usecase/batch"
	"capsnap/internal/infrastructure/config"
	"capsnap/internal/infrastructure/output/composite"
	"capsnap/internal/infrastructure/output/file"
	redismirror "capsnap/internal/infrastructure/output/redis"
	s3mirror "capsnap/internal/infrastructure/output/s3"
	"capsnap/internal/infrastructure/storage/postgres"
	"capsnap/internal/infrastructure/storage/postgrest"
	"capsnap/internal/infrastructure/storage/sqlite"
	"capsnap/internal/interfaces/console"
)

// Container holds everything a run needs. The gateway is created here and
// closed by Close; nothing else owns it.
type Container struct {
	cfg         *config.Config
	gateway     port.Gateway
	sink        *composite.Sink
	batch       *batch.Service
	closeOnce   sync.Once
	closerChain []func() error
}

func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if err := c.initGateway(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("store init failed: %w", err)
	}
	if err := c.initSinks(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("output init failed: %w", err)
	}
	c.initServices()

	return c, nil
}

func (c *Container) initGateway(ctx context.Context) error {
	st := c.cfg.Store
	timeout := time.Duration(st.TimeoutSec) * time.Second

	switch st.Driver {
	case "postgrest":
		c.gateway = postgrest.New(postgrest.Options{
			BaseURL:    st.URL,
			ServiceKey: st.ServiceKey,
			Schema:     st.Schema,
			Timeout:    timeout,
		})

	case "postgres":
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		repo, err := postgres.New(pingCtx, st.URL, st.Schema)
		if err != nil {
			return err
		}
		c.gateway = repo

	case "sqlite":
		repo, err := sqlite.New(st.URL)
		if err != nil {
			return err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			return err
		}
		c.gateway = repo

	default:
		return fmt.Errorf("unknown store driver %q", st.Driver)
	}

	gw := c.gateway
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Str("driver", st.Driver).Msg("closing store gateway")
		return gw.Close()
	})

	log.Info().
		Str("driver", st.Driver).
		Str("schema", st.Schema).
		Msg("store gateway initialized")
	return nil
}

func (c *Container) initSinks(ctx context.Context) error {
	out := c.cfg.Output

	fw, err := file.New(out.Dir)
	if err != nil {
		return err
	}
	sinks := []port.DocumentSink{fw}
	log.Info().Str("dir", out.Dir).Msg("file output initialized")

	if out.Console {
		sinks = append(sinks, console.NewSink())
	}

	if out.Redis.Enabled {
		mirror, err := c.initRedis(ctx)
		if err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
		sinks = append(sinks, mirror)
	}

	if out.S3.Enabled {
		mirror, err := s3mirror.New(ctx, s3mirror.Options{
			Region:          out.S3.Region,
			Bucket:          out.S3.Bucket,
			Prefix:          out.S3.Prefix,
			Endpoint:        out.S3.Endpoint,
			PathStyle:       out.S3.PathStyle,
			AccessKeyID:     out.S3.AccessKeyID,
			SecretAccessKey: out.S3.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("s3 init failed: %w", err)
		}
		sinks = append(sinks, mirror)
		log.Info().Str("bucket", out.S3.Bucket).Str("prefix", out.S3.Prefix).Msg("s3 mirror initialized")
	}

	c.sink = composite.New(sinks...)
	return nil
}

func (c *Container) initRedis(ctx context.Context) (*redismirror.Mirror, error) {
	rc := c.cfg.Output.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", rc.Addr).
		Int("db", rc.DB).
		Msg("redis mirror initialized")
	return redismirror.New(rdb, rc.Prefix, time.Duration(rc.TTLSeconds)*time.Second), nil
}

func (c *Container) initServices() {
	snap := c.cfg.Snapshot
	opts := service.DefaultSnapshotOptions()
	if snap.IncludeCurrent != nil {
		opts.IncludeCurrent = *snap.IncludeCurrent
	}
	if snap.IncludeCalls != nil {
		opts.IncludeCalls = *snap.IncludeCalls
	}
	if snap.CapitalSource != "" {
		opts.CapitalSource = service.CapitalSource(snap.CapitalSource)
	}

	services := appcontainer.New(c.gateway, port.SymbolSource(c.cfg.Symbols.Source), opts)
	c.batch = batch.NewService(batch.ServiceDeps{
		Symbols:       services.SymbolService(),
		Snapshots:     services.SnapshotService(),
		Sink:          c.sink,
		SymbolTimeout: time.Duration(c.cfg.Batch.SymbolTimeoutSec) * time.Second,
	})
}

func (c *Container) Sink() port.DocumentSink { return c.sink }

func (c *Container) Batch() *batch.Service { return c.batch }

// Close releases resources in reverse order of creation.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
