// Package api hosts the HTTP server, middleware, and handlers of the dashboard.
// Notable routes:
//   - GET / renders the dashboard; POST /analyze, /save and /close drive the
//     per-session analysis workflow and redirect back to /.
//   - GET /api/urls and POST /api/audits expose the url list and a stateless
//     audit preview as JSON.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
