package cli

import (
	"context"
	"sort"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// backends holds the optional external stores models and dictionaries are
// read from.
type backends struct {
	minio  *minio.Client
	redis  *redis.Client
	cfg    *config.Config
	logger logging.Logger
}

// openBackends connects the stores cfg needs: MinIO when an endpoint is
// configured, Redis when the dictionary backend is redis.
func openBackends(cfg *config.Config, logger logging.Logger) (*backends, error) {
	b := &backends{cfg: cfg, logger: logger}
	if cfg.MinIO.Endpoint != "" {
		mc, err := minio.NewClient(&cfg.MinIO, logger.Named("minio"))
		if err != nil {
			return nil, err
		}
		b.minio = mc
	}
	if cfg.Annotation.DictionaryBackend == "redis" {
		rc, err := redis.NewClient(&cfg.Redis, logger.Named("redis"))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.redis = rc
	}
	return b, nil
}

// Fetcher returns the object fetcher for s3:// locations, or nil.
func (b *backends) Fetcher() common.ObjectFetcher {
	if b.minio == nil {
		return nil
	}
	return b.minio
}

// Loader returns an annotation loader reading through the open stores.
func (b *backends) Loader(m common.IntelligenceMetrics, registry *common.ModelRegistry, logger logging.Logger) *annotation.Loader {
	l := &annotation.Loader{Fetcher: b.Fetcher(), Metrics: m, Registry: registry, Logger: logger}
	if b.redis != nil {
		rc, log := b.redis, b.logger.Named("lexicon")
		l.RemoteLexicon = func(name string) common.PolarityLexicon {
			return redis.NewLexicon(rc, name, log)
		}
	}
	return l
}

// Checkers returns the readiness checks of the open stores.
func (b *backends) Checkers() []handlers.HealthChecker {
	var out []handlers.HealthChecker
	if b.redis != nil {
		out = append(out, handlers.CheckFunc{CheckName: "redis", Fn: b.redis.Ping})
	}
	if b.minio != nil {
		if buckets := modelBuckets(b.cfg.Annotation); len(buckets) > 0 {
			mc := b.minio
			out = append(out, handlers.CheckFunc{CheckName: "minio", Fn: func(ctx context.Context) error {
				status, err := mc.HealthCheck(ctx, buckets...)
				if err != nil {
					return err
				}
				if !status.Healthy {
					return errors.New(errors.ErrCodeExternalService, status.Error)
				}
				return nil
			}})
		}
	}
	return out
}

// Close releases the stores.
func (b *backends) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.Warn("Failed to close redis client", logging.Err(err))
		}
	}
	if b.minio != nil {
		_ = b.minio.Close()
	}
}

// modelBuckets lists the distinct buckets of the s3:// model locations.
func modelBuckets(cfg config.AnnotationConfig) []string {
	seen := map[string]bool{}
	for _, loc := range []string{cfg.TargetModel, cfg.AspectModel, cfg.PolarityModel, cfg.Dictionary} {
		if bucket, _, err := common.ParseObjectURI(loc); err == nil {
			seen[bucket] = true
		}
	}
	out := make([]string, 0, len(seen))
	for bucket := range seen {
		out = append(out, bucket)
	}
	sort.Strings(out)
	return out
}
