// Package main provides the Avida .spop to standard phylogeny converter.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"spopconv/internal/config"
	"spopconv/internal/converter"
	"spopconv/internal/fetch"
	"spopconv/internal/formatter"
	"spopconv/internal/ledger"
	"spopconv/internal/logger"
	"spopconv/internal/serializer"
	"spopconv/internal/watcher"
)

const issuesURL = "https://github.com/alife-data-standards/converters-avida/issues"

const previewCellWidth = 24

type options struct {
	input       string
	output      string
	format      string
	configPath  string
	initConfig  string
	logLevel    string
	logFormat   string
	watchDir    string
	ledgerPath  string
	downloadDir string
	rescan      string
	preview     int
	limit       int
	minimal     bool
	history     bool
	listFormats bool
	strict      bool
	pretty      bool

	// flags given explicitly on the command line
	set map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	if opts.listFormats {
		fmt.Fprintf(stdout, "Valid output formats include: [%s]\n", strings.Join(serializer.Formats(), " "))
		fmt.Fprintf(stdout, "File an issue here to request new formats: %s\n", issuesURL)

		return 0
	}

	if opts.initConfig != "" {
		if err := config.Default().SaveConfig(opts.initConfig); err != nil {
			fmt.Fprintf(stderr, "❌ %v\n", err)
			return 1
		}

		fmt.Fprintf(stdout, "✅ Default profile written to: %s\n", opts.initConfig)

		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	log := logger.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	conv := converter.New(cfg, log)

	var runs *ledger.Ledger

	if cfg.Ledger.Path != "" {
		runs, err = ledger.Open(cfg.Ledger.Path)
		if err != nil {
			fmt.Fprintf(stderr, "❌ %v\n", err)
			return 1
		}
		defer runs.Close()

		conv.WithRecorder(runs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.history:
		limit := opts.limit
		if limit <= 0 {
			limit = cfg.Ledger.History
		}

		return printHistory(ctx, runs, limit, stdout, stderr)
	case opts.watchDir != "":
		return watch(ctx, conv, cfg, opts, log, stdout, stderr)
	}

	if opts.input == "" {
		fmt.Fprintln(stderr, "❌ Please provide an input .spop file")
		printUsage(stderr)

		return 1
	}

	input := opts.input

	if fetch.IsURL(input) {
		fmt.Fprintf(stdout, "Fetching %s\n", input)

		input, err = fetch.New(cfg.Fetch, log).Download(ctx, input)
		if err != nil {
			fmt.Fprintf(stderr, "❌ %v\n", err)
			return 1
		}
	}

	fmt.Fprintf(stdout, "Converting %s\n", input)

	res, err := conv.Convert(ctx, converter.Request{
		InputPath:  input,
		OutputPath: opts.output,
		Format:     cfg.Output.Format,
		Minimal:    cfg.Output.Minimal,
	})
	if err != nil {
		fmt.Fprintf(stderr, "❌ Conversion failed: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "Success!")
	printSummary(stdout, res)

	if opts.preview > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, formatter.Preview(res.Table, opts.preview, previewCellWidth))
	}

	return 0
}

// parseFlags accepts the input path before, after or between flags.
func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := newFlagSet(opts, stderr)

	var positional []string

	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}

		args = fs.Args()
		if len(args) == 0 {
			break
		}

		positional = append(positional, args[0])
		args = args[1:]
	}

	if len(positional) > 1 {
		return nil, fmt.Errorf("unexpected arguments: %v", positional[1:])
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if len(positional) == 1 {
		opts.input = positional[0]
	}

	return opts, nil
}

// loadConfig reads the profile, if any, applies flag overrides and validates
// the result before anything touches the filesystem.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()

	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if opts.format != "" {
		cfg.Output.Format = strings.ToLower(opts.format)
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(opts.logLevel)
	}

	if opts.logFormat != "" {
		cfg.Logging.Format = strings.ToLower(opts.logFormat)
	}

	if opts.ledgerPath != "" {
		cfg.Ledger.Path = opts.ledgerPath
	}

	if opts.downloadDir != "" {
		cfg.Fetch.Dir = opts.downloadDir
	}

	if opts.rescan != "" {
		cfg.Watch.Rescan = opts.rescan
	}

	if opts.set["minimal"] {
		cfg.Output.Minimal = opts.minimal
	}

	if opts.set["pretty"] {
		cfg.Output.PrettyPrint = opts.pretty
	}

	if opts.set["strict"] {
		cfg.Source.StrictColumns = opts.strict
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	return cfg, nil
}

func printHistory(ctx context.Context, runs *ledger.Ledger, limit int, stdout, stderr io.Writer) int {
	if runs == nil {
		fmt.Fprintln(stderr, "❌ -history requires a ledger (-ledger PATH or ledger.path in the profile)")
		return 1
	}

	recent, err := runs.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	if len(recent) == 0 {
		fmt.Fprintln(stdout, "No recorded runs")
		return 0
	}

	fmt.Fprintln(stdout, formatter.History(recent))

	return 0
}

func watch(ctx context.Context, conv *converter.Converter, cfg *config.Config, opts *options, log *logger.Logger, stdout, stderr io.Writer) int {
	if opts.output != "" {
		log.Warn("-output is ignored in watch mode; each file gets its default output path")
	}

	convert := func(ctx context.Context, path string) error {
		res, err := conv.Convert(ctx, converter.Request{
			InputPath: path,
			Format:    cfg.Output.Format,
			Minimal:   cfg.Output.Minimal,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(stdout, "✅ %s -> %s (%d rows)\n", res.InputPath, res.OutputPath, res.Rows)

		return nil
	}

	w := watcher.New(opts.watchDir, cfg.Watch, convert, log)

	n, err := w.ProcessExisting(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "👀 Converted %d existing file(s), watching %s (Ctrl+C to stop)\n", n, opts.watchDir)

	if err := w.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	return 0
}

func printSummary(w io.Writer, res *converter.Result) {
	fmt.Fprintln(w, "------------------------------------------------")
	fmt.Fprintf(w, "Output:   %s\n", res.OutputPath)
	fmt.Fprintf(w, "Format:   %s\n", res.Format)
	fmt.Fprintf(w, "Rows:     %d\n", res.Rows)
	fmt.Fprintf(w, "Columns:  %d\n", len(res.Columns))
	fmt.Fprintf(w, "SHA-256:  %s\n", res.Digest)
	fmt.Fprintf(w, "Run ID:   %s\n", res.RunID)
	fmt.Fprintf(w, "Duration: %v\n", res.Duration)

	if res.ExcessLines > 0 {
		fmt.Fprintf(w, "⚠️  %d line(s) had more tokens than header fields; extras were ignored\n", res.ExcessLines)
	}

	fmt.Fprintln(w, "------------------------------------------------")
}

func newFlagSet(opts *options, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("converter", flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(fs) }

	fs.StringVar(&opts.output, "output", "", "Name to assign to standard-compliant output file")
	fs.StringVar(&opts.output, "out", "", "Alias for -output")
	fs.StringVar(&opts.format, "format", "", fmt.Sprintf("Output format, one of %v (default from profile, csv)", serializer.Formats()))
	fs.BoolVar(&opts.minimal, "minimal", false, "Store only id, ancestor_list and origin_time")
	fs.BoolVar(&opts.listFormats, "list_formats", false, "List available output formats")
	fs.BoolVar(&opts.listFormats, "lsf", false, "Alias for -list_formats")
	fs.StringVar(&opts.configPath, "config", "", "Path to YAML conversion profile")
	fs.StringVar(&opts.initConfig, "init-config", "", "Write the default profile to this path and exit")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	fs.BoolVar(&opts.strict, "strict", false, "Reject data lines with more tokens than header fields")
	fs.BoolVar(&opts.pretty, "pretty", false, "Indent JSON output")
	fs.IntVar(&opts.preview, "preview", 0, "Print the first N converted rows")
	fs.StringVar(&opts.watchDir, "watch", "", "Convert every .spop file written to this directory")
	fs.StringVar(&opts.rescan, "rescan", "", "Cron schedule for periodic rescans in watch mode (e.g. \"@every 1m\")")
	fs.StringVar(&opts.ledgerPath, "ledger", "", "SQLite file recording conversion runs")
	fs.BoolVar(&opts.history, "history", false, "Print the most recent recorded runs and exit")
	fs.IntVar(&opts.limit, "limit", 0, "Number of runs shown by -history (default from profile, 10)")
	fs.StringVar(&opts.downloadDir, "download-dir", "", "Directory for inputs given as http(s) URLs (default from profile, .)")

	return fs
}

func printUsage(w io.Writer) {
	newFlagSet(&options{}, w).Usage()
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()

	fmt.Fprintln(w, "Usage: converter <input.spop|url> [OPTIONS]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Avida .spop to ALife standard-compliant phylogeny converter.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  converter detail-100000.spop")
	fmt.Fprintln(w, "  converter detail-100000.spop -format json -minimal")
	fmt.Fprintln(w, "  converter https://example.org/runs/detail-100000.spop -download-dir runs/")
	fmt.Fprintln(w, "  converter -watch data/ -ledger runs.db")
	fmt.Fprintln(w, "  converter -ledger runs.db -history -limit 20")
}
