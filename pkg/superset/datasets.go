package superset

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentstation/docsync/internal/matcher"
	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
)

// Filter selects datasets. Literal schema and database id filters are
// evaluated by Superset; patterns are evaluated client-side.
type Filter struct {
	// DatabaseID keeps datasets of one Superset database.
	DatabaseID int
	// Database is a database name, glob or "re:" pattern.
	Database string
	// Schema is a schema name, glob or "re:" pattern.
	Schema string
	// Dataset is matched against "schema.table"; plain text matches as
	// a substring.
	Dataset string
	// IncludeVirtual keeps SQL-defined datasets.
	IncludeVirtual bool
}

type selector struct {
	Filter
	database *matcher.Filter
	schema   *matcher.Filter
	dataset  *matcher.Filter
}

func (f Filter) compile() (*selector, error) {
	s := &selector{Filter: f}
	var err error
	if s.database, err = matcher.Compile(f.Database, matcher.Exact); err != nil {
		return nil, errors.NewValidationError("database", f.Database, err.Error())
	}
	if s.schema, err = matcher.Compile(f.Schema, matcher.Exact); err != nil {
		return nil, errors.NewValidationError("schema", f.Schema, err.Error())
	}
	if s.dataset, err = matcher.Compile(f.Dataset, matcher.Substring); err != nil {
		return nil, errors.NewValidationError("dataset_filter", f.Dataset, err.Error())
	}
	return s, nil
}

func (s *selector) match(d Dataset) bool {
	if !s.IncludeVirtual && !d.IsPhysical() {
		return false
	}
	if s.DatabaseID != 0 && d.DatabaseID != s.DatabaseID {
		return false
	}
	return s.database.Match(d.Database) &&
		s.schema.Match(d.Schema) &&
		s.dataset.Match(d.Schema+"."+d.TableName)
}

func (s *selector) query(page, size int) (url.Values, error) {
	q := listQuery{
		Page:           page,
		PageSize:       size,
		OrderColumn:    "id",
		OrderDirection: "asc",
	}
	// "ct" is ILIKE on Superset, so case-insensitive; match() keeps the
	// exact comparison.
	if s.schema.IsLiteral() {
		q.Filters = append(q.Filters, listFilter{Col: "schema", Opr: "ct", Value: s.schema.Pattern()})
	}
	if s.DatabaseID != 0 {
		q.Filters = append(q.Filters, listFilter{Col: "database", Opr: "rel_o_m", Value: s.DatabaseID})
	}
	data, err := json.Marshal(q)
	if err != nil {
		return nil, errors.WrapParse("json", "dataset query", err)
	}
	return url.Values{"q": []string{string(data)}}, nil
}

// Datasets returns a lazy sequence of the datasets matching filter. Pages
// are fetched as the sequence is consumed and every call starts from the
// first page. A failed page yields its error and ends the sequence.
func (c *Client) Datasets(ctx context.Context, filter Filter) iter.Seq2[Dataset, error] {
	return func(yield func(Dataset, error) bool) {
		sel, err := filter.compile()
		if err != nil {
			yield(Dataset{}, err)
			return
		}

		fetched := 0
		for page := 0; ; page++ {
			if err := ctx.Err(); err != nil {
				yield(Dataset{}, err)
				return
			}

			q, err := sel.query(page, c.pageSize)
			if err != nil {
				yield(Dataset{}, err)
				return
			}
			var resp listResponse
			if err := c.call(ctx, &transport.Request{Method: http.MethodGet, Path: "/dataset/", Query: q}, &resp); err != nil {
				yield(Dataset{}, errors.WrapResource("list", "dataset", "", apiError("dataset page", strconv.Itoa(page), err)))
				return
			}

			logging.Ctx(ctx).Debug().
				Int("page", page).
				Int("results", len(resp.Result)).
				Int("count", resp.Count).
				Msg("Fetched dataset page")

			if len(resp.Result) == 0 {
				return
			}
			for _, raw := range resp.Result {
				d := raw.dataset()
				if !sel.match(d) {
					continue
				}
				if !yield(d, nil) {
					return
				}
			}

			fetched += len(resp.Result)
			if resp.Count > 0 && fetched >= resp.Count {
				return
			}
		}
	}
}

// ListDatasets collects Datasets into a slice.
func (c *Client) ListDatasets(ctx context.Context, filter Filter) ([]Dataset, error) {
	var datasets []Dataset
	for d, err := range c.Datasets(ctx, filter) {
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, nil
}

// GetDataset returns a dataset with its columns and owners.
func (c *Client) GetDataset(ctx context.Context, datasetID int) (*Dataset, error) {
	id := strconv.Itoa(datasetID)
	var resp showResponse
	if err := c.call(ctx, &transport.Request{Method: http.MethodGet, Path: "/dataset/" + id}, &resp); err != nil {
		return nil, apiError("dataset", id, err)
	}
	resp.Result.ID = datasetID
	d := resp.Result.dataset()
	return &d, nil
}

// ListColumns returns the columns of a dataset, calculated ones included.
func (c *Client) ListColumns(ctx context.Context, datasetID int) ([]Column, error) {
	d, err := c.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	return d.Columns, nil
}
