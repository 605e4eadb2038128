package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/diewo77/sheet-invoices/httpx"
)

// Recover turns a handler panic into a JSON 500.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Criticalf("panic %s %s [%s]: %v\n%s", r.Method, r.URL.Path, RequestID(r.Context()), v, debug.Stack())
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
