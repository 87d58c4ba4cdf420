package sync

import (
	"context"
	"slices"
	"strconv"
	stdsync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/docsync/pkg/differ"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
)

// Updater writes descriptions to the BI platform. *superset.Client
// implements it.
type Updater interface {
	UpdateColumnDescription(ctx context.Context, datasetID, columnID int, description string) error
	UpdateDatasetDescription(ctx context.Context, datasetID int, description string) error
}

// BatchUpdater writes all description changes of one dataset in a single
// request. Column ids the dataset lacks are reported in missing. Apply uses
// it when the Updater also implements it.
type BatchUpdater interface {
	UpdateDescriptions(ctx context.Context, datasetID int, description *string, columns map[int]string) (missing []int, err error)
}

// Apply executes plan against updater.
//
// Entries are grouped per dataset and datasets are processed by a bounded
// pool. A BatchUpdater receives each dataset's entries as one write whose
// outcome is recorded for every entry; otherwise every entry is applied
// independently. Either way a failure is recorded and the other datasets
// continue. An authentication failure aborts the remaining
// writes and is returned. Once issued, an update runs to completion even if
// ctx is cancelled; entries not yet issued are recorded as failed with the
// cancellation cause.
func Apply(ctx context.Context, updater Updater, plan *differ.Plan, opts ...Option) (*Result, error) {
	o := Defaults().Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		DryRun:              o.DryRun,
		Planned:             plan.Len(),
		MissingColumnPolicy: o.MissingColumns,
	}
	if plan != nil {
		result.Entries = plan.Entries
	}

	logger := logging.Ctx(ctx)
	if o.DryRun || plan.IsEmpty() {
		logger.Info().Bool("dry_run", o.DryRun).Int("planned", result.Planned).Msg("No updates applied")
		return result, nil
	}

	// Step 1: Fan out per dataset
	var mu stdsync.Mutex
	record := func(e differ.Entry, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.FailedUpdates++
			result.Failures = append(result.Failures, Failure{Entry: e, Error: err.Error(), Err: err})
			return
		}
		switch e.Kind {
		case differ.KindDataset:
			result.UpdatedDatasets++
		default:
			result.UpdatedColumns++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)

	for _, group := range plan.ByDataset() {
		g.Go(func() error {
			return applyGroup(gctx, updater, group, o, record)
		})
	}

	// Step 2: Wait for issued updates
	err := g.Wait()

	logger.Info().
		Int("updated_columns", result.UpdatedColumns).
		Int("updated_datasets", result.UpdatedDatasets).
		Int("failed", result.FailedUpdates).
		Msg("Applied update plan")

	if err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func applyGroup(ctx context.Context, updater Updater, group differ.Group, o *Options, record func(differ.Entry, error)) error {
	if batch, ok := updater.(BatchUpdater); ok {
		return applyBatch(ctx, batch, group, o, record)
	}

	logger := logging.Ctx(ctx).With().Int("dataset_id", group.DatasetID).Logger()
	wrote := false

	for i, e := range group.Entries {
		if ctx.Err() != nil {
			cause := context.Cause(ctx)
			for _, rest := range group.Entries[i:] {
				record(rest, cause)
			}
			return nil
		}

		err := applyEntry(context.WithoutCancel(ctx), updater, e)
		record(e, err)
		if err != nil {
			logger.Warn().Err(err).Str("entry", e.String()).Msg("Update failed")
			if errors.IsAuthentication(err) {
				for _, rest := range group.Entries[i+1:] {
					record(rest, err)
				}
				return err
			}
			continue
		}
		wrote = true
		logger.Debug().Str("entry", e.String()).Msg("Updated description")
	}

	if wrote {
		pause(ctx, o.PauseAfterUpdate)
	}
	return nil
}

// applyBatch writes a dataset group in one request.
func applyBatch(ctx context.Context, batch BatchUpdater, group differ.Group, o *Options, record func(differ.Entry, error)) error {
	logger := logging.Ctx(ctx).With().Int("dataset_id", group.DatasetID).Logger()

	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		for _, e := range group.Entries {
			record(e, cause)
		}
		return nil
	}

	var description *string
	columns := make(map[int]string, len(group.Entries))
	for _, e := range group.Entries {
		if e.Kind == differ.KindDataset {
			desc := e.New
			description = &desc
			continue
		}
		columns[e.ColumnID] = e.New
	}

	missing, err := batch.UpdateDescriptions(context.WithoutCancel(ctx), group.DatasetID, description, columns)
	if err != nil {
		logger.Warn().Err(err).Int("entries", len(group.Entries)).Msg("Update failed")
		for _, e := range group.Entries {
			record(e, err)
		}
		if errors.IsAuthentication(err) {
			return err
		}
		return nil
	}

	wrote := false
	for _, e := range group.Entries {
		if e.Kind == differ.KindColumn && slices.Contains(missing, e.ColumnID) {
			err := errors.NewNotFoundError("column", strconv.Itoa(e.ColumnID))
			logger.Warn().Err(err).Str("entry", e.String()).Msg("Update failed")
			record(e, err)
			continue
		}
		wrote = true
		record(e, nil)
	}
	logger.Debug().Int("entries", len(group.Entries)).Msg("Updated descriptions")

	if wrote {
		pause(ctx, o.PauseAfterUpdate)
	}
	return nil
}

// pause waits d after a dataset write, or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func applyEntry(ctx context.Context, updater Updater, e differ.Entry) error {
	if e.Kind == differ.KindDataset {
		return updater.UpdateDatasetDescription(ctx, e.DatasetID, e.New)
	}
	return updater.UpdateColumnDescription(ctx, e.DatasetID, e.ColumnID, e.New)
}
