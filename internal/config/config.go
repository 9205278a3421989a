// Package config defines the canonical, JSON-serializable configuration model
// for a profiling run. It is intentionally small, explicit, and dependency-
// free so that run profiles can be loaded from disk and passed through the
// program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in profile
//     files.
//  3. Minimalism: No third-party config libraries; decoding is performed by
//     the standard library, with environment overrides for the numeric knobs.
//
// Example (trimmed):
//
//	{
//	  "job":    "orders-daily",
//	  "source": { "kind": "file", "file": { "path": "path/to.csv" } },
//	  "reader": { "delimiter": ";", "batch_size": 10000 },
//	  "stats":  { "cardinality_ceiling": 4096, "top_k": 5 },
//	  "history": { "kind": "sqlite", "dsn": "profiles.db" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Default knob values, applied wherever the profile leaves a field zero.
const (
	DefaultBatchSize          = 10000
	DefaultCardinalityCeiling = 4096
	DefaultTopK               = 5
	DefaultSampleBytes        = 64 * 1024
)

// Profile describes a full profiling run in JSON. It is the top-level object
// decoded from a profile file.
type Profile struct {
	// Job names the run; it labels metrics, logs, and history records.
	Job string `json:"job"`

	// Source describes where input data comes from (e.g., local file).
	Source Source `json:"source"`

	// Reader configures how raw bytes are turned into row batches.
	Reader Reader `json:"reader"`

	// Stats configures the per-column accumulators.
	Stats Stats `json:"stats"`

	// History optionally persists run results to a database.
	History History `json:"history"`

	// Metrics optionally pushes run metrics to a Prometheus Pushgateway.
	Metrics Metrics `json:"metrics"`
}

// Source identifies the data source. Additional kinds can be added over time.
type Source struct {
	// Kind selects the source implementation. Current value: "file".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`
}

// Reader configures batching and decoding of the input.
type Reader struct {
	// Delimiter is the field separator as a one-character string. Empty means
	// auto-detect from a byte sample.
	Delimiter string `json:"delimiter"`

	// Encoding names the source encoding (e.g. "windows-1252"). Empty means
	// auto-detect.
	Encoding string `json:"encoding"`

	// BatchSize caps the rows held in memory at once.
	BatchSize int `json:"batch_size"`

	// SampleBytes is the prefix length fed to encoding/delimiter detection.
	SampleBytes int `json:"sample_bytes"`

	// TrimSpace strips edge whitespace from every cell.
	TrimSpace bool `json:"trim_space"`

	// DecodePolicy selects what happens to rows with undecodable bytes:
	// "skip" (default), "substitute", or "abort".
	DecodePolicy string `json:"decode_policy"`
}

// Stats configures the per-column accumulators.
type Stats struct {
	// CardinalityCeiling bounds each categorical frequency table.
	CardinalityCeiling int `json:"cardinality_ceiling"`

	// TopK is the number of most-frequent values reported per categorical
	// column.
	TopK int `json:"top_k"`

	// ProbeRows caps how many first-batch rows feed the type probe.
	// 0 means the whole first batch.
	ProbeRows int `json:"probe_rows"`

	// Workers fans column aggregation out across goroutines when > 1.
	Workers int `json:"workers"`
}

// History selects the database sink for run results. An empty Kind disables
// persistence.
type History struct {
	// Kind selects the backend: "sqlite" or "postgres".
	Kind string `json:"kind"`

	// DSN is the connection string: a file path for sqlite, a
	// postgresql:// URL for postgres.
	DSN string `json:"dsn"`
}

// Metrics configures the optional Pushgateway sink. An empty URL disables it.
type Metrics struct {
	// PushgatewayURL is the base URL of the Prometheus Pushgateway.
	PushgatewayURL string `json:"pushgateway_url"`
}

// DelimiterRune returns the first rune of the delimiter string, or 0 when
// unset (meaning auto-detect).
func (r Reader) DelimiterRune() rune {
	if r.Delimiter == "" {
		return 0
	}
	return []rune(r.Delimiter)[0]
}

// Load reads and decodes a profile file, applies defaults, and applies
// environment overrides.
func Load(path string) (Profile, error) {
	var p Profile
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decode profile %s: %w", path, err)
	}
	p.ApplyDefaults()
	p.applyEnv()
	return p, nil
}

// ApplyDefaults fills every zero-valued knob with its documented default.
func (p *Profile) ApplyDefaults() {
	if p.Job == "" {
		p.Job = "flatprof"
	}
	if p.Reader.BatchSize <= 0 {
		p.Reader.BatchSize = DefaultBatchSize
	}
	if p.Reader.SampleBytes <= 0 {
		p.Reader.SampleBytes = DefaultSampleBytes
	}
	if p.Reader.DecodePolicy == "" {
		p.Reader.DecodePolicy = "skip"
	}
	if p.Stats.CardinalityCeiling <= 0 {
		p.Stats.CardinalityCeiling = DefaultCardinalityCeiling
	}
	if p.Stats.TopK <= 0 {
		p.Stats.TopK = DefaultTopK
	}
	if p.Stats.Workers <= 0 {
		p.Stats.Workers = 1
	}
}

// applyEnv overrides the numeric knobs from the environment. Invalid or
// empty values leave the profile untouched.
func (p *Profile) applyEnv() {
	p.Reader.BatchSize = getenvInt("FLATPROF_BATCH_SIZE", p.Reader.BatchSize)
	p.Stats.CardinalityCeiling = getenvInt("FLATPROF_CARDINALITY_CEILING", p.Stats.CardinalityCeiling)
	p.Stats.TopK = getenvInt("FLATPROF_TOP_K", p.Stats.TopK)
	p.Stats.Workers = getenvInt("FLATPROF_WORKERS", p.Stats.Workers)
	if v := os.Getenv("FLATPROF_PUSHGATEWAY_URL"); v != "" {
		p.Metrics.PushgatewayURL = v
	}
}

// getenvInt parses an integer environment variable, falling back to def when
// the variable is unset or malformed.
func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
