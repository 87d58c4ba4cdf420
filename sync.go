package docsync

import (
	"context"
	"slices"
	stdsync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/docsync/pkg/artifacts"
	"github.com/agentstation/docsync/pkg/differ"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/match"
	"github.com/agentstation/docsync/pkg/superset"
	"github.com/agentstation/docsync/pkg/sync"
)

// Sync pushes dbt descriptions to the platform.
//
// Artifact, option and authentication errors are returned. Unmatched
// tables, unavailable datasets and failed updates are reported in the
// result instead. A context cancelled before the apply phase returns its
// error without writing anything.
func (s *syncer) Sync(ctx context.Context, opts ...SyncOption) (*sync.Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Parse and validate options
	options := NewSyncOptions(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Setup context with timeout
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()

	// Step 3: Tag the run
	runID := s.config.runID()
	ctx = logging.WithRunID(ctx, runID)
	startedAt := s.config.now()
	logger := logging.Ctx(ctx)

	// Step 4: Load the artifact model
	tables, err := s.tables(ctx, options)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("tables", len(tables)).Msg("Loaded dbt tables")

	// Step 5: List candidate datasets
	datasets, err := s.platform.ListDatasets(ctx, options.Filter)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("datasets", len(datasets)).Msg("Listed datasets")

	// Step 6: Fetch columns of uniquely matched datasets
	unavailable, err := s.fetch(ctx, options, matchedIDs(match.Match(tables, datasets, options.matchOptions()...)), datasets)
	if err != nil {
		return nil, err
	}

	// Step 7: Match tables and columns
	results := match.Match(tables, datasets, options.matchOptions(unavailable...)...)

	// Step 8: Build the update plan
	plan := differ.New(options.differOptions()...).Plan(results)
	result := sync.NewResult(results, plan, options.applyOptions()...)
	result.RunID = runID
	result.StartedAt = startedAt

	logger.Info().
		Int("matched_tables", result.MatchedTables).
		Int("unmatched_tables", result.UnmatchedTables).
		Int("planned", plan.Len()).
		Int("skipped", len(plan.Skipped)).
		Msg("Built update plan")

	// Step 9: Abort before writing if cancelled
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 10: Apply the plan
	applied, applyErr := sync.Apply(ctx, s.platform, plan, options.applyOptions()...)
	result.Merge(applied)
	result.FinishedAt = s.config.now()

	// Step 11: Fire hooks
	s.hooks.trigger(result)

	if applyErr != nil {
		return result, applyErr
	}

	logger.Info().Str("summary", result.Summary()).Msg("Sync completed")
	return result, nil
}

// tables returns the configured tables or loads them from artifacts.
func (s *syncer) tables(ctx context.Context, options *SyncOptions) ([]artifacts.Table, error) {
	if options.Tables != nil {
		return options.Tables, nil
	}

	manifest, catalog, err := s.config.loader.Load(ctx, options.ManifestURL, options.CatalogURL)
	if err != nil {
		return nil, err
	}

	artifactOpts := options.artifactOptions()
	if options.DefaultDescriptionsURL != "" {
		defaults, err := s.config.loader.DefaultDescriptions(ctx, options.DefaultDescriptionsURL)
		if err != nil {
			return nil, err
		}
		logging.Ctx(ctx).Debug().Int("columns", defaults.Len()).Msg("Loaded default descriptions")
		artifactOpts = append(artifactOpts, artifacts.WithDefaultDescriptions(defaults))
	}

	return artifacts.NewTables(manifest, catalog, artifactOpts...)
}

// fetch replaces each dataset in ids with its detailed form, columns
// included. It returns the ids that could not be fetched. An
// authentication failure aborts the fetch and is returned.
func (s *syncer) fetch(ctx context.Context, options *SyncOptions, ids []int, datasets []superset.Dataset) ([]int, error) {
	logger := logging.Ctx(ctx)

	position := make(map[int]int, len(datasets))
	for i, d := range datasets {
		position[d.ID] = i
	}

	var (
		mu          stdsync.Mutex
		unavailable []int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(options.Concurrency)

	for _, id := range ids {
		g.Go(func() error {
			dctx := logging.WithDataset(gctx, id)

			if options.RefreshColumns && !options.DryRun {
				if err := s.platform.RefreshColumns(dctx, id); err != nil {
					if errors.IsAuthentication(err) {
						return err
					}
					logging.Ctx(dctx).Warn().Err(err).Msg("Column refresh failed")
				}
			}

			d, err := s.platform.GetDataset(dctx, id)
			if err != nil {
				if errors.IsAuthentication(err) {
					return err
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logging.Ctx(dctx).Warn().Err(err).Msg("Dataset unavailable")
				mu.Lock()
				unavailable = append(unavailable, id)
				mu.Unlock()
				return nil
			}

			// Each goroutine owns one slot.
			listed := &datasets[position[id]]
			if d.Database == "" {
				d.Database = listed.Database
			}
			*listed = *d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(unavailable)
	logger.Info().
		Int("fetched", len(ids)-len(unavailable)).
		Int("unavailable", len(unavailable)).
		Msg("Fetched dataset columns")
	return unavailable, nil
}

// matchedIDs returns the ids of datasets matched by exactly one table.
func matchedIDs(results []match.Result) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, r := range results {
		if r.Reason != match.Matched || r.Dataset == nil || seen[r.Dataset.ID] {
			continue
		}
		seen[r.Dataset.ID] = true
		ids = append(ids, r.Dataset.ID)
	}
	return ids
}
