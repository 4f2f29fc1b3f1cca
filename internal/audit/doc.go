// Package audit defines the core types shared across the dashboard: the persisted
// URL and result records, the parsed audit report, score bands, URL validation and
// the ports implemented by the storage, transport and notification packages.
package audit
