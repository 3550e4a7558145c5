package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/timeline/internal/compiler"
	"github.com/roach88/timeline/internal/engine"
	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/metrics"
	"github.com/roach88/timeline/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	Script      string
	RunID       string
	MetricsAddr string

	// RunGenerator overrides the run id source (for testing).
	// If nil, --run is used, else UUIDv7Generator.
	RunGenerator engine.RunTokenGenerator
}

// RunSummary is the output of the run command.
type RunSummary struct {
	RunID    string   `json:"run_id"`
	Document string   `json:"document"`
	Applied  int      `json:"applied"`
	Failed   int      `json:"failed"`
	LastSeq  int64    `json:"last_seq"`
	Running  []string `json:"running"`
	Waiting  []string `json:"waiting"`
}

func (s RunSummary) String() string {
	return fmt.Sprintf("Run %s (%s): %d command(s) applied, %d failed, last seq %d\n  running: %v\n  waiting: %v",
		s.RunID, s.Document, s.Applied, s.Failed, s.LastSeq, s.Running, s.Waiting)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <document>",
		Short: "Drive a scenario and record its trace",
		Long: `Instantiate a scenario document and drive it with engine commands.

Commands come from a YAML script (--script, a file with a steps list) or,
without one, from stdin as one JSON command per line:

  {"kind":"start"}
  {"kind":"tick","delta":"500ms"}
  {"kind":"trigger","sync":"s1"}

Every applied command is recorded in the trace store. Failed commands are
logged and recorded; the run carries on.

Examples:
  timeline run scenario.cue --script steps.yaml --db ./timeline.db
  timeline run scenario.yaml --db ./timeline.db --metrics-addr :9090 < commands.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: in-memory)")
	cmd.Flags().StringVar(&opts.Script, "script", "", "YAML file with the steps to apply")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: a new UUIDv7)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runEngine(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	doc, err := loadDocument(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to load document", err)
	}
	if verrs := compiler.Validate(doc); len(verrs) > 0 {
		for _, v := range verrs {
			formatter.VerboseLog("%s", v.Error())
		}
		return formatter.Fail(ExitFailure, verrs[0].Code, fmt.Sprintf("document %q is invalid", doc.Name), verrs[0])
	}

	var steps []engine.Command
	if opts.Script != "" {
		if steps, err = loadSteps(opts.Script); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load script", err)
		}
	}

	sc, err := compiler.Instantiate(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to instantiate document", err)
	}
	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to hash document", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}
	slog.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sink, stopMetrics := startMetrics(opts.MetricsAddr)
	defer stopMetrics()

	counter := &countingSink{next: st}
	eng := engine.New(sc, runGenerator(opts), engine.WithTraceSink(counter), engine.WithMetrics(sink))

	last, err := st.GetLastSeq(ctx, eng.RunID())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	if last > 0 {
		return formatter.Fail(ExitCommandError, ErrCodeStore,
			fmt.Sprintf("run %s already has trace records up to seq %d", eng.RunID(), last), nil)
	}
	run := ir.Run{
		ID:            eng.RunID(),
		Name:          doc.Name,
		DocumentHash:  hash,
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
	}
	if err := st.WriteRun(ctx, run); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if steps != nil {
		for _, step := range steps {
			eng.Enqueue(step)
		}
		eng.Stop()
	} else {
		go feedCommands(ctx, cmd.InOrStdin(), eng)
	}

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return formatter.Fail(ExitFailure, ErrCodeRunFailed, "engine error", err)
	}

	summary := RunSummary{
		RunID:    run.ID,
		Document: doc.Name,
		Applied:  counter.applied,
		Failed:   counter.failed,
		LastSeq:  eng.Clock().Current(),
		Running:  intervalIDs(eng),
		Waiting:  waitingIDs(eng),
	}
	return formatter.Success(summary)
}

func runGenerator(opts *RunOptions) engine.RunTokenGenerator {
	switch {
	case opts.RunGenerator != nil:
		return opts.RunGenerator
	case opts.RunID != "":
		return engine.NewFixedGenerator(opts.RunID)
	default:
		return engine.UUIDv7Generator{}
	}
}

// stepsFile is the --script format.
type stepsFile struct {
	Steps []engine.Command `yaml:"steps"`
}

// loadSteps reads a YAML steps list. Unknown fields are rejected.
func loadSteps(path string) ([]engine.Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f stepsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("steps list is required and must be non-empty")
	}
	return f.Steps, nil
}

// feedCommands enqueues one JSON command per line until r is exhausted or
// ctx is done, then stops the engine. Blank lines are skipped; malformed ones
// are logged. On cancellation the reading goroutine stays blocked on r until
// r yields or the process exits.
func feedCommands(ctx context.Context, r io.Reader, eng *engine.Engine) {
	defer eng.Stop()

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- bytes.Clone(scanner.Bytes()):
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Error("reading commands", "error", err)
		}
	}()

	line := 0
	for {
		var raw []byte
		select {
		case <-ctx.Done():
			return
		case next, ok := <-lines:
			if !ok {
				return
			}
			raw = next
		}

		line++
		text := bytes.TrimSpace(raw)
		if len(text) == 0 {
			continue
		}
		var c engine.Command
		if err := json.Unmarshal(text, &c); err != nil {
			slog.Warn("skipping malformed command", "line", line, "error", err)
			continue
		}
		if !eng.Enqueue(c) {
			return
		}
	}
}

// startMetrics serves a fresh registry on addr. Without an address the
// returned sink is a NoopSink.
func startMetrics(addr string) (metrics.Sink, func()) {
	if addr == "" {
		return metrics.NewNoopSink(), func() {}
	}

	reg := prometheus.NewRegistry()
	sink := metrics.NewPrometheusSink(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return sink, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("metrics server shutdown", "error", err)
		}
	}
}

// countingSink forwards records to the store and tallies outcomes. Only the
// engine's Run goroutine writes to it.
type countingSink struct {
	next    engine.TraceSink
	applied int
	failed  int
}

func (s *countingSink) WriteTrace(ctx context.Context, rec ir.TraceRecord) error {
	if err := s.next.WriteTrace(ctx, rec); err != nil {
		return err
	}
	s.applied++
	if rec.Error != "" {
		s.failed++
	}
	return nil
}

func intervalIDs(eng *engine.Engine) []string {
	running := eng.Scenario().RunningIntervals()
	ids := make([]string, len(running))
	for i, itv := range running {
		ids[i] = string(itv.ID())
	}
	return ids
}

func waitingIDs(eng *engine.Engine) []string {
	waiting := eng.Scenario().WaitingNodes()
	ids := make([]string, len(waiting))
	for i, ts := range waiting {
		ids[i] = string(ts.ID())
	}
	return ids
}
