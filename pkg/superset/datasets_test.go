package superset_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/superset"
	"github.com/agentstation/docsync/pkg/superset/supersettest"
)

func manyDatasets(n int) []supersettest.Dataset {
	out := make([]supersettest.Dataset, 0, n)
	for i := 1; i <= n; i++ {
		schema := "public"
		if i%2 == 0 {
			schema = "staging"
		}
		out = append(out, supersettest.Dataset{
			ID:        i,
			TableName: fmt.Sprintf("table_%03d", i),
			Schema:    schema,
			Database:  supersettest.Database{ID: 1 + i%3, Name: fmt.Sprintf("db%d", 1+i%3)},
		})
	}
	return out
}

func TestClient_Datasets_Pagination(t *testing.T) {
	srv := supersettest.NewServer(manyDatasets(25)...)
	defer srv.Close()
	c := newClient(t, srv, superset.WithPageSize(10))

	datasets, err := c.ListDatasets(context.Background(), superset.Filter{})
	require.NoError(t, err)
	assert.Len(t, datasets, 25)
	assert.Equal(t, 3, srv.Stats().ListPages)
	assert.Equal(t, 1, datasets[0].ID)
	assert.Equal(t, 25, datasets[24].ID)

	// every call restarts from the first page
	again, err := c.ListDatasets(context.Background(), superset.Filter{})
	require.NoError(t, err)
	assert.Len(t, again, 25)
	assert.Equal(t, 6, srv.Stats().ListPages)
}

func TestClient_Datasets_ExactPageMultiple(t *testing.T) {
	srv := supersettest.NewServer(manyDatasets(20)...)
	defer srv.Close()
	c := newClient(t, srv, superset.WithPageSize(10))

	datasets, err := c.ListDatasets(context.Background(), superset.Filter{})
	require.NoError(t, err)
	assert.Len(t, datasets, 20)
	assert.Equal(t, 2, srv.Stats().ListPages)
}

func TestClient_Datasets_Empty(t *testing.T) {
	srv := supersettest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	datasets, err := c.ListDatasets(context.Background(), superset.Filter{})
	require.NoError(t, err)
	assert.Empty(t, datasets)
	assert.Equal(t, 1, srv.Stats().ListPages)
}

func TestClient_Datasets_EarlyStop(t *testing.T) {
	srv := supersettest.NewServer(manyDatasets(25)...)
	defer srv.Close()
	c := newClient(t, srv, superset.WithPageSize(10))

	n := 0
	for _, err := range c.Datasets(context.Background(), superset.Filter{}) {
		require.NoError(t, err)
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, srv.Stats().ListPages)
}

func TestClient_Datasets_Filters(t *testing.T) {
	virtual := supersettest.Dataset{ID: 100, Kind: "virtual", TableName: "adhoc", Schema: "public", Database: supersettest.Database{ID: 1, Name: "db1"}}

	tests := []struct {
		name   string
		filter superset.Filter
		want   int
	}{
		{name: "physical only", filter: superset.Filter{}, want: 12},
		{name: "include virtual", filter: superset.Filter{IncludeVirtual: true}, want: 13},
		{name: "schema literal", filter: superset.Filter{Schema: "staging"}, want: 6},
		{name: "schema literal upper case", filter: superset.Filter{Schema: "STAGING"}, want: 6},
		{name: "schema literal is not a substring", filter: superset.Filter{Schema: "stag"}, want: 0},
		{name: "schema glob", filter: superset.Filter{Schema: "stag*"}, want: 6},
		{name: "database id", filter: superset.Filter{DatabaseID: 1}, want: 4},
		{name: "database name", filter: superset.Filter{Database: "DB2"}, want: 4},
		{name: "dataset substring", filter: superset.Filter{Dataset: "public.table_00"}, want: 5},
		{name: "dataset regex", filter: superset.Filter{Dataset: "re:_01[0-2]$"}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := supersettest.NewServer(append(manyDatasets(12), virtual)...)
			defer srv.Close()
			c := newClient(t, srv, superset.WithPageSize(5))

			datasets, err := c.ListDatasets(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Len(t, datasets, tt.want)
		})
	}
}

func TestClient_Datasets_InvalidFilter(t *testing.T) {
	srv := supersettest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	_, err := c.ListDatasets(context.Background(), superset.Filter{Dataset: "re:("})
	assert.True(t, errors.IsValidationError(err))
}

func TestClient_Datasets_CanceledContext(t *testing.T) {
	srv := supersettest.NewServer(manyDatasets(3)...)
	defer srv.Close()
	c := newClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListDatasets(ctx, superset.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_GetDataset(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset())
	defer srv.Close()
	c := newClient(t, srv)

	d, err := c.GetDataset(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "analytics.public.orders", d.String())
	assert.True(t, d.IsPhysical())
	assert.Equal(t, []int{7, 9}, d.Owners)
	require.Len(t, d.Columns, 3)

	assert.Nil(t, d.Columns[0].Description)
	assert.Equal(t, "", d.Columns[0].Text())
	assert.Equal(t, "old status", d.Columns[1].Text())
	assert.True(t, d.Columns[2].IsCalculated())
	assert.Equal(t, 1, d.Columns[2].DatasetID)

	cols, err := c.ListColumns(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, cols, 3)
}

func TestClient_GetDataset_NotFound(t *testing.T) {
	srv := supersettest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)

	_, err := c.GetDataset(context.Background(), 42)
	assert.True(t, errors.IsNotFound(err))
}

func TestClient_GetDataset_ServerError(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset())
	defer srv.Close()
	srv.Fail("GET", 1, 503)
	c := newClient(t, srv)

	_, err := c.GetDataset(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, 3, srv.Stats().Gets)
}
