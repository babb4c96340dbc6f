package ingest

import (
	"context"
	"log/slog"
	"strings"

	"siphon/internal/fileutil"
	"siphon/internal/logging"
	"siphon/internal/services"
	"siphon/internal/services/stores"
)

// FileStore is the slice of the store client the storer needs.
type FileStore interface {
	Info(ctx context.Context, archive, fileID string) (stores.FileInfo, bool, error)
	Put(ctx context.Context, path, archive, fileID, stream string) error
}

// Storer pushes confirmed files to the data store. The store addresses
// content by MD5, so a file whose digest already matches the stored copy is
// skipped rather than re-sent.
type Storer struct {
	store   FileStore
	archive string
	stream  string
	logger  *slog.Logger
}

// NewStorer wires a storer for archive using the given upload stream.
func NewStorer(store FileStore, archive, stream string, logger *slog.Logger) *Storer {
	return &Storer{
		store:   store,
		archive: archive,
		stream:  stream,
		logger:  logging.NewComponentLogger(logger, "storer"),
	}
}

// Store uploads path as fileID unless the store already holds identical
// content.
func (s *Storer) Store(ctx context.Context, path, fileID string) error {
	digest, err := fileutil.MD5File(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "storer", "store", path, err)
	}

	info, found, err := s.store.Info(ctx, s.archive, fileID)
	if err != nil {
		return err
	}
	if found && strings.EqualFold(info.MD5, digest) {
		s.logger.Debug("file already stored",
			logging.String(logging.FieldFileID, fileID),
			logging.String("md5", digest))
		return nil
	}

	if err := s.store.Put(ctx, path, s.archive, fileID, s.stream); err != nil {
		return err
	}
	s.logger.Info("stored file",
		logging.String(logging.FieldFileID, fileID),
		logging.String("md5", digest))
	return nil
}
