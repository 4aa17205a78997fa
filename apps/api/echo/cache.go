package echoapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

// listCache caches serialized list responses. Every key embeds the current generation of its
// resource; writes move the resource to a new generation, orphaning the old entries until they expire.
// A nil cache, a miss and a cache error all lead to the same answer: the store's.
type listCache struct {
	cache   core.Cache
	ttl     time.Duration
	logger  core.Logger
	metrics *metrics
}

func newListCache(cache core.Cache, ttl time.Duration, logger core.Logger, m *metrics) *listCache {
	return &listCache{cache: cache, ttl: ttl, logger: logger, metrics: m}
}

func generationKey(resource string) string {
	return "gen:" + resource
}

func (lc *listCache) generation(ctx context.Context, resource string) (string, error) {
	gen, err := lc.cache.Get(ctx, generationKey(resource))
	if err == core.ErrCacheMiss {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return string(gen), nil
}

// key identifies a list page for one requester: generation, role, profile, scope and query string.
func (lc *listCache) key(ctx echo.Context, resource string, usr user.User, scope access.Attributes) (string, error) {
	gen, err := lc.generation(ctx.Request().Context(), resource)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s|%s|%+v|%s", usr.Profile.Role, usr.Profile.ID.Hex(), scope, ctx.Request().URL.Query().Encode())
	return fmt.Sprintf("list:%s:%s:%s", resource, gen, hex.EncodeToString(h.Sum(nil))), nil
}

// serve answers a list request from the cache, or from `load` on a miss.
func (lc *listCache) serve(
	ctx echo.Context,
	resource string,
	usr user.User,
	scope access.Attributes,
	load func() (interface{}, error),
) error {
	if lc.cache == nil {
		resp, err := load()
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, resp)
	}

	reqCtx := ctx.Request().Context()
	key, err := lc.key(ctx, resource, usr, scope)
	if err == nil {
		if blob, gErr := lc.cache.Get(reqCtx, key); gErr == nil {
			lc.metrics.cacheLookups.WithLabelValues(resource, "hit").Inc()
			return ctx.JSONBlob(http.StatusOK, blob)
		} else if gErr != core.ErrCacheMiss {
			err = gErr
		}
	}
	if err != nil {
		lc.metrics.cacheLookups.WithLabelValues(resource, "error").Inc()
		lc.logger.Warn("list cache lookup failed", errors.Wrap(err, resource))
	} else {
		lc.metrics.cacheLookups.WithLabelValues(resource, "miss").Inc()
	}

	resp, lErr := load()
	if lErr != nil {
		return lErr
	}
	blob, mErr := json.Marshal(resp)
	if mErr != nil {
		return errors.Wrap(mErr, "encoding list response")
	}
	if err == nil {
		if sErr := lc.cache.Set(reqCtx, key, blob, lc.ttl); sErr != nil {
			lc.logger.Warn("list cache store failed", errors.Wrap(sErr, resource))
		}
	}
	return ctx.JSONBlob(http.StatusOK, blob)
}

// invalidate moves `resources` to a new generation.
func (lc *listCache) invalidate(ctx echo.Context, resources ...string) {
	if lc.cache == nil {
		return
	}
	for _, resource := range resources {
		// the generation outlives the entries it names
		err := lc.cache.Set(ctx.Request().Context(), generationKey(resource), []byte(uuid.NewString()), 24*time.Hour)
		if err != nil {
			lc.logger.Warn("list cache invalidation failed", errors.Wrap(err, resource))
		}
	}
}
