// Package config provides the configuration model and helpers for profiling
// runs.
//
// This file adds a lightweight linter/validator for Profile values. It
// performs static checks over a decoded Profile and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Profile.
//
// Path is a dotted path into the config (e.g. "reader.decode_policy").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation / linting of a Profile.
//
// It does not mutate the profile. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
func Validate(p Profile) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateReader(p.Reader)...)
	issues = append(issues, validateStats(p.Stats)...)
	issues = append(issues, validateHistory(p.History)...)

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}

	// Known source kinds. Unknown kinds are warnings (for forward compatibility).
	known := map[string]struct{}{
		"file": {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; ensure a matching implementation exists", s.Kind),
		})
	}

	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	}

	return issues
}

// validateReader validates batching and decoding settings.
func validateReader(r Reader) []Issue {
	var issues []Issue

	if len([]rune(r.Delimiter)) > 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "reader.delimiter",
			Message:  fmt.Sprintf("delimiter %q must be a single character", r.Delimiter),
		})
	}

	switch r.DecodePolicy {
	case "", "skip", "substitute", "abort":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "reader.decode_policy",
			Message:  fmt.Sprintf("unknown decode policy %q; use skip, substitute, or abort", r.DecodePolicy),
		})
	}

	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "reader.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.BatchSize > 0 && r.BatchSize < 100 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "reader.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; very small batches hurt throughput", r.BatchSize),
		})
	}
	if r.SampleBytes < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "reader.sample_bytes",
			Message:  "sample_bytes must not be negative",
		})
	}

	return issues
}

// validateStats validates accumulator settings.
func validateStats(s Stats) []Issue {
	var issues []Issue

	if s.CardinalityCeiling < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "stats.cardinality_ceiling",
			Message:  "cardinality_ceiling must not be negative",
		})
	}
	if s.TopK < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "stats.top_k",
			Message:  "top_k must not be negative",
		})
	}
	if s.ProbeRows < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "stats.probe_rows",
			Message:  "probe_rows must not be negative",
		})
	}
	if s.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "stats.workers",
			Message:  "workers must not be negative",
		})
	}
	if s.TopK > s.CardinalityCeiling && s.CardinalityCeiling > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "stats.top_k",
			Message:  fmt.Sprintf("top_k=%d exceeds cardinality_ceiling=%d; the table can never hold that many values", s.TopK, s.CardinalityCeiling),
		})
	}

	return issues
}

// validateHistory validates the optional database sink.
func validateHistory(h History) []Issue {
	var issues []Issue

	if strings.TrimSpace(h.Kind) == "" {
		return issues // persistence disabled
	}

	known := map[string]struct{}{
		"sqlite":   {},
		"postgres": {},
	}
	if _, ok := known[h.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "history.kind",
			Message:  fmt.Sprintf("unknown history kind %q; ensure a matching backend is registered", h.Kind),
		})
	}

	if strings.TrimSpace(h.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "history.dsn",
			Message:  "history.dsn must not be empty when a history kind is set",
		})
	}

	return issues
}
