// Package api exposes the orchestrator over HTTP.
//
// The server is a thin JSON surface over the core operations: listing
// registered plugins, admission checks, runs, and resource snapshots, plus
// health and Prometheus metrics endpoints. All state lives in the
// orchestrator; handlers only translate between HTTP and core types.
//
// # Endpoints
//
//	GET  /healthz
//	GET  /metrics
//	GET  /api/v1/plugins?category=recon
//	GET  /api/v1/plugins/{name}
//	GET  /api/v1/plugins/{name}/check
//	POST /api/v1/plugins/{name}/run
//	GET  /api/v1/resources
package api
