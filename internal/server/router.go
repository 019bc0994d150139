package server

import (
	"net/http"
	"strings"
)

// BasicRouter routes UDJ endpoints by method and path on an [http.ServeMux].
//
// Middleware wraps the whole mux, so unknown paths and wrong methods are logged and rate limited like any other
// request. A path registered for one method answers other methods with 405 and an Allow header.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	handler     http.Handler
	routes      []string
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	mux := http.NewServeMux()
	return &BasicRouter{mux: mux, handler: mux}
}

// Use adds [Middleware] to the router, applied in the order it's added.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
	r.handler = r.Apply(r.mux)
}

// Handle registers handler for method and path.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	route := strings.ToUpper(method) + " " + path
	r.mux.Handle(route, handler)
	r.routes = append(r.routes, route)
}

// Routes lists registered routes as "METHOD /path" in registration order.
func (r *BasicRouter) Routes() []string {
	return append([]string(nil), r.routes...)
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware; the first added runs first.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}
