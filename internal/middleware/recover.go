package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Recoverer logs a panicking handler and answers with the generic
// unexpected-error response.
func Recoverer(onPanic ErrorFunc) func(http.Handler) http.Handler {
	if onPanic == nil {
		onPanic = writeError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("panic serving %s %s [%s]: %v\n%s", r.Method, r.URL.Path, GetRequestID(r.Context()), rec, debug.Stack())
				onPanic(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred. Please reload the page.")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
