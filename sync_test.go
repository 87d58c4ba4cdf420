package docsync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/docsync"
	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/artifacts"
	"github.com/agentstation/docsync/pkg/differ"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/match"
	"github.com/agentstation/docsync/pkg/superset"
	"github.com/agentstation/docsync/pkg/superset/supersettest"
	"github.com/agentstation/docsync/pkg/sync"
)

var str = supersettest.Str

func ordersTable(desc string) artifacts.Table {
	return artifacts.Table{
		UniqueID:     "model.shop.orders",
		ResourceType: artifacts.ResourceModel,
		Database:     "analytics",
		Schema:       "public",
		Name:         "orders",
		Columns:      []artifacts.Column{{Name: "id", Description: desc}},
	}
}

func customersTable(desc string) artifacts.Table {
	return artifacts.Table{
		UniqueID:     "model.shop.customers",
		ResourceType: artifacts.ResourceModel,
		Database:     "analytics",
		Schema:       "public",
		Name:         "customers",
		Columns:      []artifacts.Column{{Name: "email", Description: desc}},
	}
}

func ordersDataset(desc *string) supersettest.Dataset {
	return supersettest.Dataset{
		ID:        1,
		TableName: "orders",
		Schema:    "public",
		Database:  supersettest.Database{ID: 1, Name: "analytics"},
		Owners:    []supersettest.Owner{{ID: 3}},
		Columns: []supersettest.Column{
			{ID: 10, ColumnName: "id", Description: desc},
			{ID: 11, ColumnName: "id_x2", Expression: str("id * 2")},
		},
	}
}

func customersDataset() supersettest.Dataset {
	return supersettest.Dataset{
		ID:        2,
		TableName: "customers",
		Schema:    "public",
		Database:  supersettest.Database{ID: 1, Name: "analytics"},
		Columns:   []supersettest.Column{{ID: 20, ColumnName: "email"}},
	}
}

func newSyncer(t *testing.T, srv *supersettest.Server, opts ...docsync.Option) (docsync.Syncer, *superset.Client) {
	t.Helper()
	client, err := superset.New(context.Background(), srv.URL,
		superset.WithCredentials(supersettest.Username, supersettest.Password),
		superset.WithRetryPolicy(transport.RetryPolicy{Attempts: 2, Base: time.Millisecond, Max: 2 * time.Millisecond}),
	)
	require.NoError(t, err)

	opts = append([]docsync.Option{docsync.WithRunIDFunc(func() string { return "run-1" })}, opts...)
	s, err := docsync.New(client, opts...)
	require.NoError(t, err)
	return s, client
}

func TestSync_UpdatesMissingDescription(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil))
	defer srv.Close()
	s, _ := newSyncer(t, srv)

	result, err := s.Sync(context.Background(), docsync.WithTables([]artifacts.Table{ordersTable("Order id")}))
	require.NoError(t, err)

	assert.Equal(t, 1, result.MatchedTables)
	assert.Equal(t, 1, result.UpdatedColumns)
	assert.Equal(t, 0, result.FailedUpdates)
	assert.False(t, result.HasFailures())
	assert.Equal(t, "run-1", result.RunID)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
	assert.Equal(t, str("Order id"), srv.ColumnDescription(1, 10))

	d, ok := srv.Dataset(1)
	require.True(t, ok)
	assert.Len(t, d.Columns, 2, "calculated column survives the update")
	assert.Equal(t, []supersettest.Owner{{ID: 3}}, d.Owners)
}

func TestSync_DatasetNotFound(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil))
	defer srv.Close()
	s, _ := newSyncer(t, srv)

	result, err := s.Sync(context.Background(), docsync.WithTables([]artifacts.Table{customersTable("Customer email")}))
	require.NoError(t, err)

	assert.Equal(t, 0, result.MatchedTables)
	assert.Equal(t, 1, result.UnmatchedTables)
	assert.Equal(t, 0, result.UpdatedColumns)
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, match.DatasetNotFound, result.Unmatched[0].Reason)
	assert.Equal(t, 0, srv.Stats().Gets)
	assert.Empty(t, srv.Updates())
	assert.False(t, result.HasFailures())
}

func TestSync_AlreadyUpToDate(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(str("Order id")))
	defer srv.Close()
	s, _ := newSyncer(t, srv)

	result, err := s.Sync(context.Background(), docsync.WithTables([]artifacts.Table{ordersTable("  Order id ")}))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Planned)
	assert.Equal(t, 1, result.SkippedColumns)
	assert.Empty(t, srv.Updates())
}

func TestSync_Idempotent(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil))
	defer srv.Close()
	s, _ := newSyncer(t, srv)
	tables := docsync.WithTables([]artifacts.Table{ordersTable("Order id")})

	first, err := s.Sync(context.Background(), tables)
	require.NoError(t, err)
	assert.Equal(t, 1, first.UpdatedColumns)

	second, err := s.Sync(context.Background(), tables)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Planned)
	assert.Len(t, srv.Updates(), 1)
}

func TestSync_UpdateFailureDoesNotStopOthers(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil), customersDataset())
	defer srv.Close()
	srv.Fail(http.MethodPut, 2, http.StatusInternalServerError)
	s, _ := newSyncer(t, srv)

	result, err := s.Sync(context.Background(), docsync.WithTables([]artifacts.Table{
		ordersTable("Order id"),
		customersTable("Customer email"),
	}))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Planned)
	assert.Equal(t, 1, result.UpdatedColumns)
	assert.Equal(t, 1, result.FailedUpdates)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].Entry.DatasetID)
	assert.True(t, errors.IsTransient(result.Failures[0].Err))
	assert.True(t, result.HasFailures())
	assert.Equal(t, str("Order id"), srv.ColumnDescription(1, 10))
}

func TestSync_FetchFailureMarksDatasetUnavailable(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil), customersDataset())
	defer srv.Close()
	srv.Fail(http.MethodGet, 2, http.StatusNotFound)
	s, _ := newSyncer(t, srv)

	result, err := s.Sync(context.Background(), docsync.WithTables([]artifacts.Table{
		ordersTable("Order id"),
		customersTable("Customer email"),
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, result.UpdatedColumns)
	assert.Equal(t, 1, result.FailedFetches)
	assert.True(t, result.HasFailures())
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, match.DatasetUnavailable, result.Unmatched[0].Reason)
}

func TestSync_DryRun(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil))
	defer srv.Close()
	s, _ := newSyncer(t, srv)

	result, err := s.Sync(context.Background(),
		docsync.WithTables([]artifacts.Table{ordersTable("Order id")}),
		docsync.WithDryRun(true),
		docsync.WithRefreshColumns(true),
	)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Planned)
	assert.Equal(t, 0, result.UpdatedColumns)
	assert.Contains(t, result.Summary(), "(dry run)")
	assert.Empty(t, srv.Updates())
	assert.Equal(t, 0, srv.Stats().ColumnRefreshes)
}

func TestSync_RefreshColumns(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil))
	defer srv.Close()
	s, _ := newSyncer(t, srv)

	_, err := s.Sync(context.Background(),
		docsync.WithTables([]artifacts.Table{ordersTable("Order id")}),
		docsync.WithRefreshColumns(true),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Stats().ColumnRefreshes)
}

func TestSync_TableDescriptions(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(str("Order id")))
	defer srv.Close()
	s, _ := newSyncer(t, srv)

	table := ordersTable("Order id")
	table.Description = "One row per order"
	result, err := s.Sync(context.Background(),
		docsync.WithTables([]artifacts.Table{table}),
		docsync.WithTableDescriptions(true),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UpdatedDatasets)
	d, ok := srv.Dataset(1)
	require.True(t, ok)
	assert.Equal(t, str("One row per order"), d.Description)
}

// cancelingPlatform cancels the run once columns have been fetched.
type cancelingPlatform struct {
	*superset.Client
	cancel context.CancelFunc
}

func (p *cancelingPlatform) GetDataset(ctx context.Context, id int) (*superset.Dataset, error) {
	d, err := p.Client.GetDataset(ctx, id)
	p.cancel()
	return d, err
}

func TestSync_CanceledBeforeApply(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil))
	defer srv.Close()
	_, client := newSyncer(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := docsync.New(&cancelingPlatform{Client: client, cancel: cancel})
	require.NoError(t, err)

	result, err := s.Sync(ctx, docsync.WithTables([]artifacts.Table{ordersTable("Order id")}))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Empty(t, srv.Updates())
}

// rejectingPlatform fails every write with an authentication error.
type rejectingPlatform struct {
	*superset.Client
}

func (p *rejectingPlatform) UpdateColumnDescription(context.Context, int, int, string) error {
	return errors.NewAuthenticationError("superset", "refresh", "refresh token expired", nil)
}

func TestSync_AuthenticationFailureAborts(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil), customersDataset())
	defer srv.Close()
	_, client := newSyncer(t, srv)

	s, err := docsync.New(&rejectingPlatform{Client: client}, docsync.WithRunIDFunc(func() string { return "run-2" }))
	require.NoError(t, err)

	result, err := s.Sync(context.Background(),
		docsync.WithTables([]artifacts.Table{ordersTable("Order id"), customersTable("Customer email")}),
		docsync.WithConcurrency(1),
	)
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
	require.NotNil(t, result)
	assert.Equal(t, 2, result.FailedUpdates)
	assert.Equal(t, 0, result.UpdatedColumns)
}

func TestSync_Hooks(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset(nil), customersDataset())
	defer srv.Close()
	srv.Fail(http.MethodPut, 2, http.StatusBadRequest)
	s, _ := newSyncer(t, srv)

	var updated []differ.Entry
	var failed []sync.Failure
	var unmatched []sync.Unmatched
	s.Hooks().OnUpdated(func(e differ.Entry) { updated = append(updated, e) })
	s.Hooks().OnFailed(func(f sync.Failure) { failed = append(failed, f) })
	s.Hooks().OnUnmatched(func(u sync.Unmatched) { unmatched = append(unmatched, u) })

	missing := ordersTable("Order id")
	missing.Columns = append(missing.Columns, artifacts.Column{Name: "gone", Description: "Dropped upstream"})

	_, err := s.Sync(context.Background(), docsync.WithTables([]artifacts.Table{missing, customersTable("Customer email")}))
	require.NoError(t, err)

	require.Len(t, updated, 1)
	assert.Equal(t, 10, updated[0].ColumnID)
	require.Len(t, failed, 1)
	assert.Equal(t, 20, failed[0].Entry.ColumnID)
	require.Len(t, unmatched, 1)
	assert.Equal(t, "gone", unmatched[0].Column)
}

func TestSync_LoadsProjectArtifacts(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.MkdirAll(target, 0o755))

	manifest := artifacts.Manifest{
		Metadata: artifacts.Metadata{DbtSchemaVersion: "https://schemas.getdbt.com/dbt/manifest/v12.json"},
		Nodes: map[string]artifacts.ManifestNode{
			"model.shop.orders": {
				UniqueID:     "model.shop.orders",
				ResourceType: artifacts.ResourceModel,
				Database:     "analytics",
				Schema:       "public",
				Name:         "orders",
				Columns:      map[string]artifacts.ManifestColumn{"id": {Name: "id", Description: "**Order** id"}},
			},
		},
	}
	catalog := artifacts.Catalog{
		Metadata: artifacts.Metadata{DbtSchemaVersion: "https://schemas.getdbt.com/dbt/catalog/v1.json"},
		Nodes: map[string]artifacts.CatalogNode{
			"model.shop.orders": {
				UniqueID: "model.shop.orders",
				Metadata: artifacts.CatalogRelation{Type: "table", Database: "analytics", Schema: "public", Name: "orders"},
				Columns:  map[string]artifacts.CatalogColumn{"id": {Name: "id", Index: 1, Type: "integer"}},
			},
		},
	}
	for name, v := range map[string]any{"manifest.json": manifest, "catalog.json": catalog} {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(target, name), data, 0o600))
	}

	srv := supersettest.NewServer(ordersDataset(nil))
	defer srv.Close()
	s, _ := newSyncer(t, srv)

	result, err := s.Sync(context.Background(), docsync.WithProjectDir(dir), docsync.WithPlainText(true))
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedColumns)
	assert.Equal(t, str("Order id"), srv.ColumnDescription(1, 10))
}

func TestSync_InvalidOptions(t *testing.T) {
	srv := supersettest.NewServer()
	defer srv.Close()
	s, _ := newSyncer(t, srv)

	tests := []struct {
		name  string
		opts  []docsync.SyncOption
		field string
	}{
		{name: "missing manifest", opts: []docsync.SyncOption{docsync.WithCatalog("catalog.json")}, field: "manifest"},
		{name: "missing catalog", opts: []docsync.SyncOption{docsync.WithManifest("manifest.json")}, field: "catalog"},
		{name: "concurrency too high", opts: []docsync.SyncOption{docsync.WithTables(nil), docsync.WithConcurrency(9)}, field: "Concurrency"},
		{name: "negative timeout", opts: []docsync.SyncOption{docsync.WithTables(nil), docsync.WithTimeout(-time.Second)}, field: "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Sync(context.Background(), tt.opts...)
			require.Error(t, err)
			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, srv.Stats().ListPages)
		})
	}
}

func TestNew_RequiresPlatform(t *testing.T) {
	_, err := docsync.New(nil)
	require.Error(t, err)

	_, err = docsync.New(&superset.Client{}, docsync.WithClock(nil))
	require.Error(t, err)
}
