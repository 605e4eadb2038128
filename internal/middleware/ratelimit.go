package middleware

import (
	"fmt"
	"net/http"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/diewo77/sheet-invoices/httpx"
	"github.com/diewo77/sheet-invoices/i18n"
)

// RateLimit limits requests per client IP using a formatted rate such as
// "10-M". Blocked requests get a 429 with a translated error.
func RateLimit(formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", formatted, err)
	}
	instance := limiter.New(memory.NewStore(), rate)
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			log.Warnf("Rate limit reached: %s %s", r.Method, r.URL.Path)
			msg := i18n.T(LangFrom(r), "login_rate_limited")
			if httpx.WantsJSON(r) {
				httpx.Fail(w, http.StatusTooManyRequests, msg)
				return
			}
			http.Error(w, msg, http.StatusTooManyRequests)
		}),
	)
	return mw.Handler, nil
}
