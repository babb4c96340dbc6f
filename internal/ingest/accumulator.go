package ingest

import (
	"context"
	"log/slog"
	"regexp"

	"siphon/internal/catalog"
	"siphon/internal/containers"
	"siphon/internal/fits"
	"siphon/internal/logging"
	"siphon/internal/services"
)

// HeaderReader extracts the primary header from a file on disk.
type HeaderReader func(path string) (*fits.Header, error)

// AccumulatorOption configures an Accumulator.
type AccumulatorOption func(*Accumulator)

// WithHeaderReader substitutes the header reader (primarily for tests).
func WithHeaderReader(read HeaderReader) AccumulatorOption {
	return func(a *Accumulator) {
		if read != nil {
			a.readHeader = read
		}
	}
}

// WithStorer enables store pushes for confirmed files. Required when a run
// has store mode active.
func WithStorer(s *Storer) AccumulatorOption {
	return func(a *Accumulator) {
		a.storer = s
	}
}

// WithNamePatterns restricts ingestion candidates to file ids matching at
// least one pattern; non-matching files become preview candidates.
func WithNamePatterns(patterns []*regexp.Regexp) AccumulatorOption {
	return func(a *Accumulator) {
		a.patterns = patterns
	}
}

// Accumulator drains containers into the run's catalog one file at a time.
// Metadata problems land in the ledger and never stop the drain; listing
// breaches and commit-mode merge failures do.
type Accumulator struct {
	adapter    Adapter
	readHeader HeaderReader
	storer     *Storer
	patterns   []*regexp.Regexp
	logger     *slog.Logger
}

// NewAccumulator builds an accumulator around the given adapter.
func NewAccumulator(adapter Adapter, logger *slog.Logger, opts ...AccumulatorOption) *Accumulator {
	acc := &Accumulator{
		adapter:    adapter,
		readHeader: fits.ReadPrimaryHeader,
		logger:     logging.NewComponentLogger(logger, "accumulator"),
	}
	for _, opt := range opts {
		opt(acc)
	}
	return acc
}

// Drain processes every file id the container lists, in listing order,
// each under a scoped Use. A Get or Use failure means the listing lied and
// aborts the run; per-file metadata errors are recorded and skipped over.
func (a *Accumulator) Drain(ctx context.Context, rc *RunContext, c containers.Container) error {
	if rc.Mode.Store && a.storer == nil {
		return services.Wrap(services.ErrConfiguration, "accumulator", "drain", "store mode requires a file store", nil)
	}

	ctx = services.WithContainer(ctx, c.Name())
	logger := logging.WithContext(ctx, a.logger)
	ids := c.FileIDs()
	logger.Info("draining container", logging.Int("files", len(ids)))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.Use(ctx, id, func(path string) error {
			logger.Debug("processing file",
				logging.String(logging.FieldFileID, id),
				logging.String("path", path))
			return a.processFile(ctx, rc, c, id, path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// processFile runs one file through size check, name check, header read,
// adapter population, merge, and the optional store push, then tracks its
// source label in the stored or preview side list.
func (a *Accumulator) processFile(ctx context.Context, rc *RunContext, c containers.Container, fileID, path string) error {
	led := rc.Ledger
	label := sourceLabel(c, fileID, path)

	if !led.CheckSize(path) {
		rc.Previews = append(rc.Previews, label)
		return nil
	}
	if !led.CheckName(path, fileID, a.patterns, false) {
		rc.Previews = append(rc.Previews, label)
		a.maybeStore(ctx, rc, path, fileID)
		return nil
	}

	header, err := a.readHeader(path)
	if err != nil {
		led.Error(path, err.Error())
		header = fits.NewHeader(nil)
	}

	rec := catalog.NewRecord()
	src := FileSource{FileID: fileID, Path: path, Persistent: c.Persistent()}
	if led.Capture(path, func() error { return a.adapter.Populate(rec, header, src) }) {
		if err := rc.Catalog.Merge(rec); err != nil {
			if rc.Mode.Commit() {
				return err
			}
			led.Error(path, err.Error())
		}
	}

	a.maybeStore(ctx, rc, path, fileID)
	if led.Flagged(path) {
		rc.Previews = append(rc.Previews, label)
	} else {
		rc.Stored = append(rc.Stored, label)
	}
	return nil
}

// maybeStore pushes the file when store mode is active and nothing has been
// recorded against it. A push failure flags the file.
func (a *Accumulator) maybeStore(ctx context.Context, rc *RunContext, path, fileID string) {
	if !rc.Mode.Store || a.storer == nil {
		return
	}
	if rc.Ledger.Flagged(path) {
		return
	}
	if err := a.storer.Store(ctx, path, fileID); err != nil {
		rc.Ledger.Error(path, err.Error())
	}
}

// sourceURI is implemented by containers that know a browsable remote
// location per file id.
type sourceURI interface {
	URI(fileID string) (string, error)
}

// sourceLabel names the file in side lists: the remote location when the
// container has one, the materialized path otherwise.
func sourceLabel(c containers.Container, fileID, path string) string {
	if remote, ok := c.(sourceURI); ok {
		if uri, err := remote.URI(fileID); err == nil {
			return uri
		}
	}
	return path
}
