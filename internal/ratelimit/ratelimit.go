package ratelimit

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/errors"
	"github.com/nxtgenia/miniaturia/internal/logger"
)

const storePrefix = "miniaturia:ratelimit"

// builds the limiter store, shared through redis when a client is given
func NewStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          storePrefix,
			CleanUpInterval: time.Minute,
		}), nil
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: storePrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}

	return store, nil
}

// limits requests per authenticated user, or per client ip before auth
func Middleware(store limiter.Store, name, formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid %s rate %q: %w", name, formatted, err)
	}

	lim := limiter.New(store, rate)

	return mgin.NewMiddleware(lim,
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return name + ":" + key(c)
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.FromContext(c.Request.Context()).Warn("rate limit reached",
				"limiter", name,
				"key", key(c),
			)
			errors.TooManyRequests(c, "")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// fail open, a broken limiter store must not take billing down
			logger.FromContext(c.Request.Context()).Warn("rate limiter unavailable", "limiter", name, "error", err)
			c.Next()
		}),
	), nil
}

func key(c *gin.Context) string {
	if userID, ok := auth.GetUserID(c); ok {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}
