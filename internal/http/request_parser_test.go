package http

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disputes/internal/core"
	"disputes/internal/services"
)

func TestParseDashboardParams(t *testing.T) {
	q, err := url.ParseQuery("start=2024-01-01&end=2024-01-31&status=open&status=%20closed%20&status=&type=rate&customer=A&top=5&dimension=siteName")
	require.NoError(t, err)

	p, err := ParseDashboardParams(q)
	require.NoError(t, err)
	f := p.Query.Filters
	assert.Equal(t, "2024-01-01", f.Start.String())
	assert.Equal(t, "2024-01-31", f.End.String())
	assert.Equal(t, []string{"open", "closed"}, f.Statuses)
	assert.Equal(t, []string{"rate"}, f.Types)
	assert.Equal(t, []string{"A"}, f.Customers)
	assert.Equal(t, 5, p.Query.TopN)
	assert.Equal(t, core.DimensionSite, p.Dimension)
}

func TestParseDashboardParamsDefaults(t *testing.T) {
	p, err := ParseDashboardParams(url.Values{})
	require.NoError(t, err)
	assert.True(t, p.Query.Filters.IsEmpty())
	assert.Equal(t, 0, p.Query.TopN, "zero lets the dashboard apply its default")
	assert.Equal(t, core.DimensionCustomer, p.Dimension)
	assert.Empty(t, p.Encode())
}

func TestParseDashboardParamsErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		param string
	}{
		{"bad start", "start=01-2024", paramStart},
		{"bad end", "end=tomorrow", paramEnd},
		{"bad top", "top=ten", paramTop},
		{"bad dataset", "dataset=nope", paramDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			_, err := ParseDashboardParams(q)
			var pe *ParamError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.param, pe.Param)
		})
	}

	q, _ := url.ParseQuery("start=bad")
	_, err := ParseDashboardParams(q)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestTopIsClamped(t *testing.T) {
	for raw, want := range map[string]int{"0": services.DefaultTopN, "-3": services.DefaultTopN, "1000": services.MaxTopN, "7": 7} {
		p, err := ParseDashboardParams(url.Values{paramTop: {raw}})
		require.NoError(t, err)
		assert.Equal(t, want, p.Query.TopN, "top=%s", raw)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw := "cols=status&cols=po_number&customer=A&customer=B&dataset=6f1c0e2a-8d3b-4c56-9a1e-0b7d2f3c4e5a&dimension=item&end=2024-02-01&start=2024-01-01&status=open&top=3&type=rate"
	q, _ := url.ParseQuery(raw)
	p, err := ParseDashboardParams(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "po_number"}, p.Columns)
	assert.Equal(t, raw, p.Encode())

	again, err := url.ParseQuery(p.Encode())
	require.NoError(t, err)
	p2, err := ParseDashboardParams(again)
	require.NoError(t, err)
	assert.Equal(t, p, p2)
}
