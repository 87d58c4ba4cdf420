package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Order id", want: "Order id"},
		{name: "emphasis", in: "The *current* __status__", want: "The current status"},
		{name: "heading and paragraph", in: "# Orders\n\nOne row per order.", want: "Orders One row per order."},
		{name: "list", in: "- placed\n- shipped", want: "placed shipped"},
		{name: "link", in: "See [the docs](https://example.com/docs).", want: "See the docs."},
		{name: "autolink", in: "<https://example.com>", want: "https://example.com"},
		{name: "inline code kept", in: "Use `status` here", want: "Use status here"},
		{name: "fenced code dropped", in: "Example:\n\n```sql\nselect 1\n```\n\nDone.", want: "Example: Done."},
		{name: "raw html dropped", in: "a <b>bold</b> word", want: "a bold word"},
		{name: "null literal", in: "Is <null> when unknown", want: `Is "null" when unknown`},
		{name: "mis-decoded arrow", in: "placed â†’ shipped", want: "placed -> shipped"},
		{name: "whitespace collapsed", in: "  many\n\n\n   lines  ", want: "many lines"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}
