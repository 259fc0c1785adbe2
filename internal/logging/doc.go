// Package logging centralizes slog construction and the structured field
// vocabulary shared by the curation components. Use New to build a logger
// from configuration and NewComponentLogger to tag a component's records.
package logging
