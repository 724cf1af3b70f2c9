package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trezcool/pagebuilder/core/page"
)

const (
	contextPageKey = "object"

	// limiters idle for longer are dropped
	limiterTTL = 10 * time.Minute
)

func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(RoleAdmin)
}

func editorMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(RoleAdmin, RoleEditor)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimitMiddleware throttles requests per token subject, or per client IP when unauthenticated.
// A non-positive limit disables it.
func rateLimitMiddleware(limit rate.Limit, burst int) echo.MiddlewareFunc {
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
		lastGC   = time.Now()
	)

	allow := func(key string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastGC) > limiterTTL {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > limiterTTL {
					delete(visitors, k)
				}
			}
			lastGC = now
		}

		v, ok := visitors[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(limit, burst)}
			visitors[key] = v
		}
		v.lastSeen = now
		return v.limiter.Allow()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limit <= 0 {
				return next(ctx)
			}
			key := ctx.RealIP()
			if claims, err := getContextClaims(ctx); err == nil && claims.Subject != "" {
				key = "sub:" + claims.Subject
			}
			if !allow(key) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

// pageMiddleware loads the page named in the path into the context.
func pageMiddleware(svc page.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := svc.Get(ctx.Request().Context(), ctx.Param("name"))
			if err != nil {
				if errors.Cause(err) == page.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding page by name")
			}
			ctx.Set(contextPageKey, p)
			return next(ctx)
		}
	}
}
