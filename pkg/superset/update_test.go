package superset_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/superset/supersettest"
)

func TestClient_UpdateColumnDescription(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset())
	defer srv.Close()
	c := newClient(t, srv)

	require.NoError(t, c.UpdateColumnDescription(context.Background(), 1, 10, "Order id"))

	d, ok := srv.Dataset(1)
	require.True(t, ok)
	require.Len(t, d.Columns, 3, "columns omitted from the update would be deleted")
	assert.Equal(t, "Order id", *d.Columns[0].Description)
	assert.Equal(t, "old status", *d.Columns[1].Description)
	assert.Equal(t, "total * 2", *d.Columns[2].Expression)
	assert.Equal(t, []supersettest.Owner{{ID: 7}, {ID: 9}}, d.Owners, "owners omitted from the update would be cleared")

	updates := srv.Updates()
	require.Len(t, updates, 1)
	assert.Nil(t, updates[0].Description)
	assert.Equal(t, []int{7, 9}, updates[0].Owners)
}

func TestClient_UpdateColumnDescription_Concurrent(t *testing.T) {
	ds := ordersDataset()
	for i := 13; i < 33; i++ {
		ds.Columns = append(ds.Columns, supersettest.Column{ID: i, ColumnName: "c"})
	}
	srv := supersettest.NewServer(ds)
	defer srv.Close()
	c := newClient(t, srv)

	var wg sync.WaitGroup
	for i := 13; i < 33; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, c.UpdateColumnDescription(context.Background(), 1, id, "documented"))
		}(i)
	}
	wg.Wait()

	for i := 13; i < 33; i++ {
		desc := srv.ColumnDescription(1, i)
		require.NotNil(t, desc, "column %d lost its update", i)
		assert.Equal(t, "documented", *desc)
	}
}

func TestClient_UpdateColumnDescription_Errors(t *testing.T) {
	tests := []struct {
		name     string
		dataset  int
		column   int
		fail     int
		check    func(error) bool
		wantPuts int
	}{
		{name: "unknown dataset", dataset: 99, column: 10, check: errors.IsNotFound},
		{name: "unknown column", dataset: 1, column: 99, check: errors.IsNotFound},
		{name: "persistent server error", dataset: 1, column: 10, fail: http.StatusInternalServerError, check: errors.IsTransient, wantPuts: 3},
		{name: "forbidden", dataset: 1, column: 10, fail: http.StatusForbidden, check: func(err error) bool {
			var apiErr *errors.APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
		}, wantPuts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := supersettest.NewServer(ordersDataset())
			defer srv.Close()
			if tt.fail != 0 {
				srv.Fail(http.MethodPut, tt.dataset, tt.fail)
			}
			c := newClient(t, srv)

			err := c.UpdateColumnDescription(context.Background(), tt.dataset, tt.column, "x")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Equal(t, tt.wantPuts, srv.Stats().Puts)
		})
	}
}

func TestClient_UpdateDatasetDescription(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset())
	defer srv.Close()
	c := newClient(t, srv)

	require.NoError(t, c.UpdateDatasetDescription(context.Background(), 1, "One row per order."))

	d, _ := srv.Dataset(1)
	assert.Equal(t, "One row per order.", *d.Description)
	assert.Len(t, d.Columns, 3)
	assert.Len(t, d.Owners, 2)
}

func TestClient_UpdateDescriptions(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset())
	defer srv.Close()
	c := newClient(t, srv)

	desc := "One row per order."
	missing, err := c.UpdateDescriptions(context.Background(), 1, &desc, map[int]string{
		10: "Order id",
		11: "Order status",
		99: "Dropped downstream",
	})
	require.NoError(t, err)
	assert.Equal(t, []int{99}, missing)

	stats := srv.Stats()
	assert.Equal(t, 1, stats.Puts, "one write per dataset")
	assert.Equal(t, 1, stats.Gets)

	d, _ := srv.Dataset(1)
	assert.Equal(t, desc, *d.Description)
	require.Len(t, d.Columns, 3)
	assert.Equal(t, "Order id", *d.Columns[0].Description)
	assert.Equal(t, "Order status", *d.Columns[1].Description)
	assert.Equal(t, "total * 2", *d.Columns[2].Expression)
	assert.Equal(t, []supersettest.Owner{{ID: 7}, {ID: 9}}, d.Owners)
}

func TestClient_UpdateDescriptions_NothingToWrite(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset())
	defer srv.Close()
	c := newClient(t, srv)

	missing, err := c.UpdateDescriptions(context.Background(), 1, nil, map[int]string{98: "a", 99: "b"})
	require.NoError(t, err)
	assert.Equal(t, []int{98, 99}, missing)
	assert.Zero(t, srv.Stats().Puts)
}

func TestClient_RefreshColumns(t *testing.T) {
	srv := supersettest.NewServer(ordersDataset())
	defer srv.Close()
	c := newClient(t, srv)

	require.NoError(t, c.RefreshColumns(context.Background(), 1))
	assert.Equal(t, 1, srv.Stats().ColumnRefreshes)

	assert.True(t, errors.IsNotFound(c.RefreshColumns(context.Background(), 2)))
}
