package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"siphon/internal/catalog"
	"siphon/internal/fileindex"
	"siphon/internal/logging"
	"siphon/internal/services"
	"siphon/internal/services/fits2plane"
)

// Repository is the slice of the repository client the driver needs.
type Repository interface {
	Process(ctx context.Context, collection, observationID, destDir string, fn func(docPath string) error) error
}

// Converter runs the external tool for one plane. The tool's own retry
// policy lives behind this interface.
type Converter interface {
	Convert(ctx context.Context, req fits2plane.Request, onOutput func(string)) error
}

// PlaneRecorder receives the file ids of committed planes.
type PlaneRecorder interface {
	RecordPlane(ctx context.Context, ref fileindex.PlaneRef, fileIDs []string) error
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithPlaneRecorder records committed planes in the file index.
func WithPlaneRecorder(index PlaneRecorder) DriverOption {
	return func(d *Driver) {
		d.index = index
	}
}

// WithToolFiles passes the configured --config and --default files through
// to every tool invocation.
func WithToolFiles(configPath, defaultPath string) DriverOption {
	return func(d *Driver) {
		d.configPath = configPath
		d.defaultPath = defaultPath
	}
}

// WithRetainOverrides keeps override files after successful planes.
func WithRetainOverrides(retain bool) DriverOption {
	return func(d *Driver) {
		d.retainOverrides = retain
	}
}

// Driver converts the accumulated catalog into the observation repository,
// one observation transaction at a time. Each plane walks
// Pending -> OverrideWritten -> ToolInvoked -> Succeeded or Failed; a failed
// plane never stops the rest of the batch.
type Driver struct {
	repo            Repository
	converter       Converter
	index           PlaneRecorder
	configPath      string
	defaultPath     string
	retainOverrides bool
	logger          *slog.Logger
}

// NewDriver wires a driver over the repository and tool clients.
func NewDriver(repo Repository, converter Converter, logger *slog.Logger, opts ...DriverOption) *Driver {
	d := &Driver{
		repo:      repo,
		converter: converter,
		logger:    logging.NewComponentLogger(logger, "driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type planeJob struct {
	plane        *catalog.Plane
	result       *PlaneResult
	overridePath string
}

// Run drives every catalog plane and reports the outcome. The returned
// error covers run-level aborts only; per-plane failures live in the
// summary, with all committed observations kept.
func (d *Driver) Run(ctx context.Context, rc *RunContext) (*Summary, error) {
	summary := &Summary{RunID: rc.ID}
	var runErr error

outer:
	for _, colName := range rc.Catalog.Collections.Keys() {
		col, _ := rc.Catalog.Collections.Get(colName)
		for _, obsID := range col.Observations.Keys() {
			if err := ctx.Err(); err != nil {
				runErr = err
				break outer
			}
			obs, _ := col.Observations.Get(obsID)
			summary.Planes = append(summary.Planes, d.driveObservation(ctx, rc, colName, obs)...)
		}
	}

	summary.Errors = rc.Ledger.ErrorCount()
	summary.Warnings = rc.Ledger.WarningCount()
	return summary, runErr
}

// driveObservation runs one repository transaction covering every plane of
// obs. The transaction commits when at least one plane succeeded; planes
// that succeeded locally but saw the commit fail flip back to Failed.
func (d *Driver) driveObservation(ctx context.Context, rc *RunContext, collection string, obs *catalog.Observation) []*PlaneResult {
	ctx = services.WithObservation(ctx, obs.ID)
	logger := logging.WithContext(ctx, d.logger).With(
		logging.String(logging.FieldCollection, collection))

	jobs := make([]*planeJob, 0, obs.Planes.Len())
	results := make([]*PlaneResult, 0, obs.Planes.Len())
	for _, planeID := range obs.Planes.Keys() {
		plane, _ := obs.Planes.Get(planeID)
		job := &planeJob{
			plane: plane,
			result: &PlaneResult{
				Collection:    collection,
				ObservationID: obs.ID,
				ProductID:     planeID,
				State:         StatePending,
			},
			overridePath: filepath.Join(rc.OverridesDir, obs.ID+"_"+planeID+".override"),
		}
		jobs = append(jobs, job)
		results = append(results, job.result)
	}

	err := d.repo.Process(ctx, collection, obs.ID, rc.Root, func(docPath string) error {
		succeeded := 0
		for _, job := range jobs {
			d.ingestPlane(ctx, obs, job, docPath)
			if job.result.State == StateSucceeded {
				succeeded++
			}
		}
		if succeeded == 0 {
			return services.Wrap(services.ErrExternalTool, "driver", "process",
				"no planes succeeded for observation "+obs.ID, nil)
		}
		return nil
	})
	if err != nil {
		for _, job := range jobs {
			if job.result.State != StateFailed {
				job.result.fail("observation transaction failed: " + err.Error())
			}
		}
		logging.ErrorWithContext(logger, "observation failed", "observation_failed",
			logging.Error(err))
		return results
	}

	for _, job := range jobs {
		if job.result.State == StateSucceeded {
			d.afterCommit(ctx, logger, collection, obs.ID, job)
		}
	}
	logger.Info("observation committed", logging.Int("planes", len(jobs)))
	return results
}

// ingestPlane walks one plane through the state machine inside the open
// transaction: override file, then the tool against the working document.
func (d *Driver) ingestPlane(ctx context.Context, obs *catalog.Observation, job *planeJob, docPath string) {
	result := job.result
	logger := d.logger.With(
		logging.String(logging.FieldCollection, result.Collection),
		logging.String(logging.FieldObservation, result.ObservationID),
		logging.String(logging.FieldProduct, result.ProductID))

	if err := os.WriteFile(job.overridePath, catalog.Override(obs, job.plane), 0o644); err != nil {
		result.fail("write override: " + err.Error())
		logging.ErrorWithContext(logger, "override write failed", "override_write_failed",
			logging.Error(err))
		return
	}
	result.State = StateOverrideWritten

	uris, locals := planeURIs(job.plane)
	if len(uris) == 0 {
		result.fail("nothing to ingest: plane has no artifact URIs")
		return
	}

	req := fits2plane.Request{
		Collection:    result.Collection,
		ObservationID: result.ObservationID,
		ProductID:     result.ProductID,
		OutputPath:    docPath,
		ConfigPath:    d.configPath,
		DefaultPath:   d.defaultPath,
		OverridePath:  job.overridePath,
		URIs:          uris,
		LocalPaths:    locals,
	}
	if _, err := os.Stat(docPath); err == nil {
		req.InputPath = docPath
	}

	result.State = StateToolInvoked
	err := d.converter.Convert(ctx, req, func(line string) {
		logger.Debug(line)
	})
	if err != nil {
		result.fail(err.Error())
		logging.ErrorWithContext(logger, "plane conversion failed", "plane_failed",
			logging.Error(err))
		return
	}
	result.State = StateSucceeded
	logger.Info("plane converted", logging.Int("uris", len(uris)))
}

// afterCommit runs the post-transaction bookkeeping for one committed
// plane: drop the override file unless retained, record the plane's file
// ids in the file index. Index trouble downgrades to a warning because the
// repository already holds the observation.
func (d *Driver) afterCommit(ctx context.Context, logger *slog.Logger, collection, observationID string, job *planeJob) {
	if !d.retainOverrides {
		_ = os.Remove(job.overridePath)
	}
	if d.index == nil {
		return
	}

	seen := make(map[string]struct{})
	var fileIDs []string
	for _, uri := range job.plane.URIDict.Keys() {
		fileID := fileIDFromURI(uri)
		if fileID == "" {
			continue
		}
		if _, ok := seen[fileID]; ok {
			continue
		}
		seen[fileID] = struct{}{}
		fileIDs = append(fileIDs, fileID)
	}

	ref := fileindex.PlaneRef{
		Collection:    collection,
		ObservationID: observationID,
		ProductID:     job.result.ProductID,
	}
	if err := d.index.RecordPlane(ctx, ref, fileIDs); err != nil {
		logging.WarnWithContext(logger, "file index update failed", "file_index_update_failed",
			logging.String(logging.FieldProduct, job.result.ProductID),
			logging.Error(err))
	}
}

// planeURIs returns the plane's artifact URIs sorted, plus the parallel
// local paths when every artifact has one.
func planeURIs(plane *catalog.Plane) ([]string, []string) {
	uris := plane.URIDict.Keys()
	sort.Strings(uris)

	locals := make([]string, len(uris))
	haveAll := len(uris) > 0
	for i, uri := range uris {
		local, _ := plane.URIDict.Get(uri)
		if local == "" {
			haveAll = false
			break
		}
		locals[i] = local
	}
	if !haveAll {
		return uris, nil
	}
	return uris, locals
}
