package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/vendorportal/api/responses"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	pkgredis "github.com/angelmondragon/vendorportal/pkg/redis"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

const (
	cacheHeader          = "X-Cache"
	publicInventoryScope = "public_inventory"
)

// PublicInventory serves the buyer-facing storefront pages without a session.
// Successful answers are cached in redis for ttl.
func PublicInventory(backend backendDoer, cache pkgredis.Cache, ttl time.Duration, logg *logger.Logger) http.HandlerFunc {
	useCache := ttl > 0 && !isNilCache(cache)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if backend == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "backend api unavailable"))
			return
		}

		var key string
		if useCache {
			key = cache.CacheKey(publicInventoryScope, r.URL.Path, r.URL.Query().Encode())
			cached, err := cache.Get(ctx, key)
			switch {
			case err == nil && cached != "":
				w.Header().Set(cacheHeader, "HIT")
				responses.WriteUpstream(w, &upstream.Response{Status: http.StatusOK, Body: []byte(cached)})
				return
			case err != nil && !pkgredis.IsMiss(err) && logg != nil:
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "public_inventory.cache_read_failed")
			}
		}

		resp, err := backend.Do(ctx, upstream.Request{
			Method: http.MethodGet,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !resp.OK() {
			responses.WriteError(ctx, logg, w, upstream.ErrorFromResponse(resp))
			return
		}

		if useCache && resp.Status == http.StatusOK && len(resp.Body) > 0 {
			if err := cache.Set(ctx, key, string(resp.Body), ttl); err != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "public_inventory.cache_write_failed")
			}
			w.Header().Set(cacheHeader, "MISS")
		}
		responses.WriteUpstream(w, resp)
	}
}

func isNilCache(cache pkgredis.Cache) bool {
	if cache == nil {
		return true
	}
	client, ok := cache.(*pkgredis.Client)
	return ok && client == nil
}
