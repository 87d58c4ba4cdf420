package superset

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
)

// datasetLocks hands out one mutex per dataset id.
type datasetLocks struct {
	mu sync.Mutex
	m  map[int]*sync.Mutex
}

func (l *datasetLocks) lock(id int) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[int]*sync.Mutex)
	}
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// UpdateDescriptions writes a dataset description (when description is not
// nil) and column descriptions keyed by column id in one request.
//
// Superset replaces a dataset's column list wholesale and clears owners
// missing from an update, so the dataset is re-read and every column and
// owner is sent back with only the target descriptions changed. Column ids
// the dataset does not have are returned in missing and left out; when
// nothing remains to write no request is sent.
func (c *Client) UpdateDescriptions(ctx context.Context, datasetID int, description *string, columns map[int]string) (missing []int, err error) {
	unlock := c.locks.lock(datasetID)
	defer unlock()

	d, err := c.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	body := datasetUpdate{Description: description, Owners: owners(d)}
	found := 0
	if len(columns) > 0 {
		body.Columns = make([]columnUpdate, 0, len(d.Columns))
		for _, col := range d.Columns {
			u := columnUpdate{ID: col.ID, ColumnName: col.Name, Description: col.Description}
			if col.IsCalculated() {
				expr := col.Expression
				u.Expression = &expr
			}
			if desc, ok := columns[col.ID]; ok {
				found++
				u.Description = &desc
			}
			body.Columns = append(body.Columns, u)
		}
		for id := range columns {
			if !slices.ContainsFunc(d.Columns, func(col Column) bool { return col.ID == id }) {
				missing = append(missing, id)
			}
		}
		slices.Sort(missing)
		if found == 0 {
			body.Columns = nil
		}
	}
	if found == 0 && description == nil {
		return missing, nil
	}

	if err := c.put(ctx, datasetID, body); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Int("dataset_id", datasetID).
		Int("columns", found).
		Bool("description", description != nil).
		Msg("Updated dataset descriptions")
	return missing, nil
}

// UpdateColumnDescription sets the description of one dataset column.
func (c *Client) UpdateColumnDescription(ctx context.Context, datasetID, columnID int, description string) error {
	missing, err := c.UpdateDescriptions(ctx, datasetID, nil, map[int]string{columnID: description})
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return errors.NewNotFoundError("column", strconv.Itoa(columnID))
	}
	return nil
}

// UpdateDatasetDescription sets the description of a dataset.
func (c *Client) UpdateDatasetDescription(ctx context.Context, datasetID int, description string) error {
	_, err := c.UpdateDescriptions(ctx, datasetID, &description, nil)
	return err
}

// RefreshColumns asks Superset to re-read the dataset's columns from the
// warehouse.
func (c *Client) RefreshColumns(ctx context.Context, datasetID int) error {
	unlock := c.locks.lock(datasetID)
	defer unlock()

	id := strconv.Itoa(datasetID)
	err := c.call(ctx, &transport.Request{Method: http.MethodPut, Path: "/dataset/" + id + "/refresh"}, nil)
	return apiError("dataset", id, err)
}

func (c *Client) put(ctx context.Context, datasetID int, body datasetUpdate) error {
	id := strconv.Itoa(datasetID)
	err := c.call(ctx, &transport.Request{
		Method: http.MethodPut,
		Path:   "/dataset/" + id,
		Query:  url.Values{"override_columns": []string{"false"}},
		Body:   body,
	}, nil)
	return apiError("dataset", id, err)
}

func owners(d *Dataset) []int {
	if d.Owners == nil {
		return []int{}
	}
	return d.Owners
}
