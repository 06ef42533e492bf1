// Package converter turns an Avida population file into a standard
// phylogeny file.
package converter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"spopconv/internal/config"
	"spopconv/internal/ledger"
	"spopconv/internal/logger"
	"spopconv/internal/models"
	"spopconv/internal/normalizer"
	"spopconv/internal/serializer"
	"spopconv/internal/spop"
	"spopconv/pkg/metadata"
	"spopconv/pkg/utils"
)

// ErrInputNotFound is returned when the input path is not an existing file.
var ErrInputNotFound = errors.New("input file not found")

// Recorder stores the outcome of every conversion.
type Recorder interface {
	Record(ctx context.Context, run ledger.Run) error
}

// Request describes one conversion. Empty Format falls back to the
// configured default; empty OutputPath is derived from InputPath.
type Request struct {
	InputPath  string
	OutputPath string
	Format     string
	Minimal    bool
}

// Result summarizes a successful conversion.
type Result struct {
	StartedAt   time.Time
	Table       *models.Table
	RunID       string
	InputPath   string
	OutputPath  string
	Format      string
	Digest      string
	Columns     []string
	Rows        int
	ExcessLines int
	Duration    time.Duration
	Minimal     bool
}

// Converter runs the read, normalize, validate, project and write pipeline.
type Converter struct {
	cfg      *config.Config
	log      *logger.Logger
	recorder Recorder
}

// New creates a converter. A nil logger discards output.
func New(cfg *config.Config, log *logger.Logger) *Converter {
	if log == nil {
		log = logger.Discard()
	}

	return &Converter{cfg: cfg, log: log}
}

// WithRecorder returns the converter with a run recorder attached.
func (c *Converter) WithRecorder(r Recorder) *Converter {
	c.recorder = r
	return c
}

// Convert performs one conversion. Input and format are checked before any
// file is read, and the output file is only created once the table has been
// built and validated.
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	res := &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		InputPath: req.InputPath,
		Format:    req.Format,
		Minimal:   req.Minimal,
	}

	if res.Format == "" {
		res.Format = c.cfg.Output.Format
	}

	log := c.log.With("run_id", res.RunID, "input", req.InputPath)

	err := c.convert(ctx, req, res, log)
	res.Duration = time.Since(res.StartedAt)

	c.record(ctx, res, err, log)

	if err != nil {
		log.Error("conversion failed", "error", err)
		return nil, err
	}

	log.Info("conversion complete",
		"output", res.OutputPath,
		"rows", res.Rows,
		"columns", len(res.Columns),
		"duration", res.Duration,
	)

	return res, nil
}

func (c *Converter) convert(ctx context.Context, req Request, res *Result, log *logger.Logger) error {
	info, err := os.Stat(req.InputPath)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputNotFound, req.InputPath)
	}

	if err := serializer.Validate(res.Format); err != nil {
		return err
	}

	res.OutputPath = req.OutputPath
	if res.OutputPath == "" {
		res.OutputPath = utils.StandardOutputPath(req.InputPath,
			c.cfg.Output.SourceExtension, c.cfg.Output.Suffix, res.Format)
	}

	doc, err := spop.ReadFile(req.InputPath, c.cfg.ReaderOptions())
	if err != nil {
		return err
	}

	log.Debug("source parsed", "fields", len(doc.Header), "data_lines", doc.DataLines, "short_lines", doc.ShortLines)

	if doc.ExcessLines > 0 {
		log.Warn("data lines with more tokens than header fields; extra tokens ignored", "lines", doc.ExcessLines)
	}

	table, err := normalizer.NewProcessor(c.cfg.Fields(), req.Minimal).Process(doc.Table)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.write(res.OutputPath, res.Format, table); err != nil {
		return err
	}

	res.Digest, err = metadata.FileHash(res.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to hash output: %w", err)
	}

	res.Table = table
	res.Rows = table.Rows()
	res.Columns = table.Columns()
	res.ExcessLines = doc.ExcessLines

	return nil
}

func (c *Converter) write(path, format string, table *models.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	w := bufio.NewWriter(f)

	if err := serializer.Write(format, w, table, c.cfg.SerializerOptions()); err != nil {
		f.Close()
		return err
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}

	return f.Close()
}

func (c *Converter) record(ctx context.Context, res *Result, runErr error, log *logger.Logger) {
	if c.recorder == nil {
		return
	}

	run := ledger.Run{
		ID:        res.RunID,
		Input:     res.InputPath,
		Output:    res.OutputPath,
		Format:    res.Format,
		Minimal:   res.Minimal,
		Rows:      res.Rows,
		Columns:   len(res.Columns),
		Digest:    res.Digest,
		Status:    ledger.StatusSuccess,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}

	if runErr != nil {
		run.Status = ledger.StatusFailed
		run.Error = runErr.Error()
	}

	// a ledger failure never fails the conversion itself
	if err := c.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("failed to record run", "error", err)
	}
}
