package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Tracing wraps handlers in otelhttp spans named after the matched chi
// route pattern, keeping span-name cardinality bounded.
func Tracing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrappedNext := http.HandlerFunc(func(w2 http.ResponseWriter, r2 *http.Request) {
				rctx := chi.RouteContext(r2.Context())
				var operation string
				if rctx != nil && rctx.RoutePattern() != "" {
					operation = fmt.Sprintf("%s %s", r2.Method, rctx.RoutePattern())
				} else {
					operation = fmt.Sprintf("%s %s", r2.Method, r2.URL.Path)
				}

				otelhttp.NewHandler(next, operation).ServeHTTP(w2, r2)
			})

			wrappedNext.ServeHTTP(w, r)
		})
	}
}
