// Package api exposes the HTTP interface for the discovery service: session
// lifecycle endpoints, read-only progress endpoints, and health/metrics.
package api
