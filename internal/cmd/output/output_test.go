package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/docsync/pkg/differ"
	"github.com/agentstation/docsync/pkg/match"
	"github.com/agentstation/docsync/pkg/sync"
)

func testResult() *sync.Result {
	entry := differ.Entry{Kind: differ.KindColumn, DatasetID: 1, ColumnID: 10, Table: "analytics.public.orders", Column: "id", New: "Order id"}
	failed := differ.Entry{Kind: differ.KindColumn, DatasetID: 2, ColumnID: 20, Table: "analytics.public.customers", Column: "email", New: "Customer email"}
	return &sync.Result{
		RunID:           "run-1",
		MatchedTables:   2,
		UnmatchedTables: 1,
		MatchedColumns:  2,
		Planned:         2,
		UpdatedColumns:  1,
		FailedUpdates:   1,
		Unmatched: []sync.Unmatched{
			{Table: "analytics.public.payments", Reason: match.AmbiguousDataset, Candidates: []int{3, 4}},
		},
		Failures: []sync.Failure{{Entry: failed, Error: "status 500"}},
		Entries:  []differ.Entry{entry, failed},
	}
}

func TestFormatResult_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatResult(&buf, testResult(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Matched tables")
	assert.Contains(t, out, "analytics.public.payments")
	assert.Contains(t, out, "3, 4")
	assert.Contains(t, out, "status 500")
	assert.NotContains(t, out, "Order id", "entries are listed only in wide format")
	assert.Contains(t, out, "2/3 tables matched: 1 columns updated, 0 skipped, 1 failed")
}

func TestFormatResult_Wide(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatResult(&buf, testResult(), FormatWide))
	assert.Contains(t, buf.String(), "Order id")
	assert.Contains(t, buf.String(), "analytics.public.orders.id")
}

func TestFormatResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatResult(&buf, testResult(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.EqualValues(t, 1, decoded["updated_columns"])
}

func TestFormatResult_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatResult(&buf, testResult(), FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "table", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: "yaml", want: FormatYAML},
		{in: "wide", want: FormatWide},
		{in: "", want: ""},
		{in: "csv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormat_Explicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestFormatResult_ReasonLabels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatResult(&buf, testResult(), FormatTable))
	assert.Contains(t, buf.String(), "Ambiguous dataset")
	assert.NotContains(t, buf.String(), "ambiguous_dataset")
}

func TestReasonLabel(t *testing.T) {
	assert.Equal(t, "Column not found", reasonLabel(match.ColumnNotFound))
	assert.Equal(t, "Dataset unavailable", reasonLabel(match.DatasetUnavailable))
	assert.Equal(t, "", reasonLabel(match.Matched))
}

func TestFormat_IsTable(t *testing.T) {
	assert.True(t, Format("").IsTable())
	assert.True(t, FormatWide.IsTable())
	assert.False(t, FormatYAML.IsTable())
}

func TestTableFormatter_NonTableData(t *testing.T) {
	var buf bytes.Buffer
	err := NewFormatter(FormatTable).Format(&buf, []sync.Unmatched{
		{Table: "analytics.public.orders", Column: "gone", Reason: match.ColumnNotFound},
	})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "column_not_found", decoded[0]["reason"])
}
