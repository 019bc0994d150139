// Package server is a small UDJ server for development and end-to-end tests.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] runs in the order it was added and wraps the whole mux, so 404 and 405 answers are logged too.
// The [BasicRouter] implementation registers "METHOD /path" patterns on an [http.ServeMux].
// [ListenAndServe] logs every registered route before it starts listening.
//
// [New] applies three middlewares to every route:
//   - [Recover]: handler panics become 500s
//   - [Logging]: one structured log line per request
//   - [RateLimiter.Limit]: per-client-IP token buckets, 429 when exhausted
//
// # Endpoints
//
// All endpoints take form-encoded POSTs with username and password fields:
//   - /auth: 200 or 401
//   - /playlist: applies the updatearray and returns entries changed since timestamp
//   - /library: returns library entries changed since timestamp
//
// State lives in a [Store] in memory. Removed entries are kept as tombstones and reported with deleted set.
package server
