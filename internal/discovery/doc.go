// Package discovery defines the core types and interfaces shared across the
// discovery engine: search grids, sessions, candidates, canonical business
// records, and the provider/store contracts the orchestrator composes.
package discovery
