// Package cmd implements the dashboard command line: serve, migrate and version.
//
// Architecture overview:
//   - HTTP: internal/api.Server renders the dashboard page and drives one dashboard.Workflow per browser session
//     (cookie). The workflow validates the submitted URL locally, calls the audit API through internal/pagespeed,
//     and shows the five category scores with their bands.
//   - Shared URL store: internal/urlstore holds every known url. It is hydrated exactly once at startup from the
//     configured repository and then appended to as new urls are saved; all sessions read the same store.
//   - Persistence: urls and results live in Postgres (pgx), SQLite (modernc) or memory, selected by db.driver.
//     Saving a new url inserts the url row and then the result row; the result insert runs even when the url insert
//     failed.
//   - Fanout: raw audit responses can be archived to the local filesystem or GCS, and every saved result publishes a
//     result_saved event (in process or Google Cloud Pub/Sub).
//   - Configuration & plumbing: Viper populates config from env (DASHBOARD_ prefix) and an optional YAML file; zap
//     provides structured logging; Prometheus metrics are exported on /metrics.
//
// Operational notes:
//   - A failed startup hydration is logged and the server keeps running with an empty store. There are no retries.
//   - Outbound audit calls are bounded by pagespeed.timeout_seconds; HTTP requests by server.request_timeout_seconds.
//   - The process reacts to SIGINT/SIGTERM by draining the HTTP server before closing pools and clients.
//
// Quick checklist:
//   - Configure DASHBOARD_PAGESPEED_API_KEY, DASHBOARD_DB_DRIVER and DASHBOARD_DB_DSN (or DASHBOARD_DB_SQLITE_PATH).
//   - Create tables once with `dashboard migrate`, then run `dashboard serve --config config.yaml`.
package cmd
