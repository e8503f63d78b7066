// Package metrics declares the Prometheus collectors exported by the
// media catalog: HTTP request metrics, catalog store query and transaction
// metrics, library synchronizer run counters, duration probe outcomes,
// playlist build statistics, and artwork cache counters.
//
// All collectors are registered with the default registry via promauto at
// package load time and exposed through the /metrics endpoint.
package metrics
