package app

import (
	"github.com/bandmate/backend/internal/config"
	"github.com/bandmate/backend/internal/expand"
	"github.com/bandmate/backend/internal/handlers"
	"github.com/bandmate/backend/internal/middleware"
	"github.com/bandmate/backend/internal/social"
	"github.com/bandmate/backend/internal/store"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(s store.Store, health handlers.HealthCheck, cfg config.Config) handlers.Dependencies {
	var reader store.Reader = s
	if cfg.ExpandCacheTTL > 0 {
		cache := store.NewCachingReader(s, cfg.ExpandCacheTTL)
		s = store.WithInvalidation(s, cache)
		reader = cache
	}

	engine := social.New(s)

	return handlers.Dependencies{
		Users:    engine,
		Friends:  engine,
		Reviews:  engine,
		Samples:  engine,
		Bands:    engine,
		Expander: expand.New(reader, 0),
		Limiter:  middleware.NewRateLimiter(cfg.RateLimit),
		Health:   health,
	}
}
