package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"flatprof/internal/config"
	"flatprof/internal/datasource/file"
	"flatprof/internal/history"
	historypg "flatprof/internal/history/postgres"
	historysqlite "flatprof/internal/history/sqlite"
	"flatprof/internal/metrics"
	"flatprof/internal/metrics/prompush"
	csvparser "flatprof/internal/parser/csv"
	"flatprof/internal/pipeline"
	"flatprof/internal/report"
	"flatprof/internal/sniff"
)

var (
	profileJob          string
	profileDelimiter    string
	profileEncoding     string
	profileBatchSize    int
	profileTopK         int
	profileCeiling      int
	profileWorkers      int
	profileDecodePolicy string
	profileTrimSpace    bool
	profileOutput       string
	profileHistoryKind  string
	profileHistoryDSN   string
	profilePushgateway  string
	profileNoProgress   bool
)

var profileCmd = &cobra.Command{
	Use:   "profile [file]",
	Short: "Profile a delimited text file",
	Long: `Profile a delimited text file: encoding and delimiter are detected
from a byte sample unless configured, column types are probed from the first
batch, and per-column statistics are aggregated in one streaming pass.

Examples:
  flatprof profile data.csv
  flatprof profile data.csv --delimiter ';' --encoding windows-1252
  flatprof profile data.csv --output report.txt --history sqlite --history-dsn profiles.db
  flatprof profile data.csv --config orders.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProfile(cmd.Context(), args[0])
	},
}

func init() {
	f := profileCmd.Flags()
	f.StringVar(&profileJob, "job", "", "job name for logs, metrics, and history")
	f.StringVar(&profileDelimiter, "delimiter", "", "field separator (default: detect)")
	f.StringVar(&profileEncoding, "encoding", "", "source encoding name (default: detect)")
	f.IntVar(&profileBatchSize, "batch-size", 0, "rows per in-memory batch")
	f.IntVar(&profileTopK, "top-k", 0, "most frequent values reported per categorical column")
	f.IntVar(&profileCeiling, "cardinality-ceiling", 0, "exact frequency table bound per column")
	f.IntVar(&profileWorkers, "workers", 0, "column aggregation goroutines")
	f.StringVar(&profileDecodePolicy, "decode-policy", "", "undecodable rows: skip, substitute, or abort")
	f.BoolVar(&profileTrimSpace, "trim-space", false, "strip edge whitespace from every cell")
	f.StringVar(&profileOutput, "output", "", "report file (default: stdout)")
	f.StringVar(&profileHistoryKind, "history", "", "history backend: sqlite or postgres")
	f.StringVar(&profileHistoryDSN, "history-dsn", "", "history connection string")
	f.StringVar(&profilePushgateway, "pushgateway", "", "Prometheus Pushgateway base URL")
	f.BoolVar(&profileNoProgress, "no-progress", false, "disable the progress bar")

	rootCmd.AddCommand(profileCmd)
}

func runProfile(ctx context.Context, path string) error {
	prof, err := buildProfile(path)
	if err != nil {
		return err
	}
	if err := lintProfile(prof); err != nil {
		return err
	}

	if prof.Metrics.PushgatewayURL != "" {
		backend, err := prompush.NewBackend(prof.Job, prof.Metrics.PushgatewayURL)
		if err != nil {
			return err
		}
		metrics.SetBackend(backend)
		defer func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: push failed: %v", err)
			}
		}()
	}

	src := file.NewLocal(prof.Source.File.Path)

	// Resolve encoding and delimiter, detecting whatever is not pinned down.
	props, err := resolveProperties(ctx, src, prof)
	if err != nil {
		return err
	}
	log.Printf("profile: file=%s encoding=%s delimiter=%q",
		filepath.Base(prof.Source.File.Path), props.EncodingName, props.Delimiter)

	driver := pipeline.New(progressSource{src: src, quiet: profileNoProgress}, pipeline.Config{
		Job:                prof.Job,
		BatchSize:          prof.Reader.BatchSize,
		ProbeRows:          prof.Stats.ProbeRows,
		CardinalityCeiling: prof.Stats.CardinalityCeiling,
		TopK:               prof.Stats.TopK,
		TrimSpace:          prof.Reader.TrimSpace,
		Delimiter:          props.Delimiter,
		Encoding:           props.Encoding,
		DecodePolicy:       decodePolicy(prof.Reader.DecodePolicy),
		Workers:            prof.Stats.Workers,
	})

	started := time.Now()
	summary, runErr := driver.Run(ctx)
	if runErr != nil {
		log.Printf("profile: run failed: %v", runErr)
	}

	info := report.Info{
		Path:      prof.Source.File.Path,
		Encoding:  props.EncodingName,
		Delimiter: props.Delimiter,
	}
	if size, err := src.Size(); err == nil {
		info.FileSizeBytes = size
	}
	if shouldRenderReport(summary) {
		if err := writeReport(info, summary); err != nil {
			return err
		}
	}

	if prof.History.Kind != "" {
		if err := saveHistory(ctx, prof, summary, started); err != nil {
			log.Printf("history: save failed: %v", err)
		}
	}
	return runErr
}

// buildProfile merges the optional config file with the CLI flags; flags win.
func buildProfile(path string) (config.Profile, error) {
	var prof config.Profile
	var err error
	if cfgFile != "" {
		prof, err = config.Load(cfgFile)
		if err != nil {
			return prof, err
		}
	}
	prof.Source.Kind = "file"
	prof.Source.File.Path = path

	if profileJob != "" {
		prof.Job = profileJob
	}
	if profileDelimiter != "" {
		prof.Reader.Delimiter = profileDelimiter
	}
	if profileEncoding != "" {
		prof.Reader.Encoding = profileEncoding
	}
	if profileBatchSize > 0 {
		prof.Reader.BatchSize = profileBatchSize
	}
	if profileDecodePolicy != "" {
		prof.Reader.DecodePolicy = profileDecodePolicy
	}
	if profileTrimSpace {
		prof.Reader.TrimSpace = true
	}
	if profileTopK > 0 {
		prof.Stats.TopK = profileTopK
	}
	if profileCeiling > 0 {
		prof.Stats.CardinalityCeiling = profileCeiling
	}
	if profileWorkers > 0 {
		prof.Stats.Workers = profileWorkers
	}
	if profileHistoryKind != "" {
		prof.History.Kind = profileHistoryKind
	}
	if profileHistoryDSN != "" {
		prof.History.DSN = profileHistoryDSN
	}
	if profilePushgateway != "" {
		prof.Metrics.PushgatewayURL = profilePushgateway
	}

	prof.ApplyDefaults()
	return prof, nil
}

// lintProfile surfaces every validation finding; errors abort the run.
func lintProfile(prof config.Profile) error {
	issues := config.Validate(prof)
	fatal := false
	for _, iss := range issues {
		log.Printf("config: %s", iss.Error())
		if iss.Severity == config.SeverityError {
			fatal = true
		}
	}
	if fatal {
		return fmt.Errorf("invalid configuration (%d issues)", len(issues))
	}
	return nil
}

// resolveProperties fills in whatever the profile pins down and detects the
// rest from a byte sample.
func resolveProperties(ctx context.Context, src *file.Local, prof config.Profile) (sniff.Properties, error) {
	enc, err := sniff.EncodingByName(prof.Reader.Encoding)
	if err != nil {
		return sniff.Properties{}, err
	}
	delim := prof.Reader.DelimiterRune()

	if enc != nil && delim != 0 {
		return sniff.Properties{
			Encoding:     enc,
			EncodingName: prof.Reader.Encoding,
			Delimiter:    delim,
		}, nil
	}

	sample, err := src.Sample(ctx, prof.Reader.SampleBytes)
	if err != nil {
		return sniff.Properties{}, err
	}
	props, err := sniff.Detect(sample)
	if err != nil {
		return sniff.Properties{}, err
	}
	if enc != nil {
		props.Encoding = enc
		props.EncodingName = prof.Reader.Encoding
	}
	if delim != 0 {
		props.Delimiter = delim
	}
	return props, nil
}

func decodePolicy(name string) csvparser.DecodePolicy {
	switch name {
	case "substitute":
		return csvparser.DecodeSubstitute
	case "abort":
		return csvparser.DecodeAbort
	default:
		return csvparser.DecodeSkip
	}
}

// shouldRenderReport reports whether the run's outcome gets a report. A
// canceled run discards its partial statistics, so nothing is rendered; the
// run-level summary still flows to history and metrics.
func shouldRenderReport(s *pipeline.Summary) bool {
	return s != nil && s.ErrKind != pipeline.ErrKindCanceled
}

func writeReport(info report.Info, summary *pipeline.Summary) error {
	out := os.Stdout
	if profileOutput != "" {
		f, err := os.Create(profileOutput)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return report.Render(out, info, summary)
}

func saveHistory(ctx context.Context, prof config.Profile, summary *pipeline.Summary, started time.Time) error {
	var (
		repo history.Repository
		err  error
	)
	switch prof.History.Kind {
	case "sqlite":
		repo, err = historysqlite.NewRepository(ctx, prof.History.DSN)
	case "postgres":
		repo, err = historypg.NewRepository(ctx, prof.History.DSN)
	default:
		return fmt.Errorf("unknown history kind %q", prof.History.Kind)
	}
	if err != nil {
		return err
	}
	defer repo.Close()

	rec := history.FromSummary(summary, prof.Source.File.Path, started)
	id, err := repo.SaveRun(ctx, rec)
	if err != nil {
		return err
	}
	log.Printf("history: saved run id=%d", id)
	return nil
}

// progressSource wraps the file source so the streamed bytes feed a
// progress bar on stderr.
type progressSource struct {
	src   *file.Local
	quiet bool
}

func (p progressSource) Open(ctx context.Context) (io.ReadCloser, error) {
	rc, err := p.src.Open(ctx)
	if err != nil || p.quiet {
		return rc, err
	}

	size := int64(-1)
	if s, err := p.src.Size(); err == nil {
		size = s
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(fmt.Sprintf("profiling %s", filepath.Base(p.src.Path()))),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	return &progressReader{Reader: progressbar.NewReader(rc, bar), closer: rc}, nil
}

type progressReader struct {
	progressbar.Reader
	closer io.Closer
}

func (r *progressReader) Close() error { return r.closer.Close() }
