package middleware

import (
	"net/http"

	"github.com/campuskit/access-api/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const defaultRatelimitRate = "5-S"

// RateLimitFormatted returns middleware that uses ulule/limiter with Redis
// and a formatted rate such as "5-S". Uses request.ClientIP for the limit key.
func RateLimitFormatted(redisClient *redis.Client, formattedRate string) (func(http.Handler) http.Handler, error) {
	if formattedRate == "" {
		formattedRate = defaultRatelimitRate
	}
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, err
	}
	store, err := redisstore.NewStore(redisClient)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(store, rate)
	keyGetter := func(r *http.Request) string {
		return request.ClientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(keyGetter))
	return mw.Handler, nil
}
