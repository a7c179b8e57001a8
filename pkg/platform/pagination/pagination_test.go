package pagination

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		cfg   PageSizeConfig
		want  Params
	}{
		{name: "defaults", query: "", cfg: Standard, want: Params{Page: 1, PerPage: 20}},
		{name: "explicit", query: "page=3&per_page=5", cfg: Standard, want: Params{Page: 3, PerPage: 5}},
		{name: "clamped to max", query: "per_page=1000", cfg: Standard, want: Params{Page: 1, PerPage: 100}},
		{name: "registry max", query: "per_page=80", cfg: PageSizeConfig{Default: 20, Max: 50}, want: Params{Page: 1, PerPage: 50}},
		{name: "negative page", query: "page=-2", cfg: Standard, want: Params{Page: 1, PerPage: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			got, err := FromQuery(q, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("non numeric is invalid input", func(t *testing.T) {
		_, err := FromQuery(url.Values{"page": {"two"}}, Standard)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestSliceAndOffset(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, Slice(all, Params{Page: 2, PerPage: 2}))
	assert.Equal(t, []int{5}, Slice(all, Params{Page: 3, PerPage: 2}))
	assert.Nil(t, Slice(all, Params{Page: 4, PerPage: 2}))
}

func TestNewPageRendersEmptyData(t *testing.T) {
	body, err := json.Marshal(NewPage[int](nil, Params{Page: 1, PerPage: 20}, 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"meta":{"page":1,"per_page":20,"total":0}}`, string(body))
}

func TestDateParam(t *testing.T) {
	d, err := DateParam(url.Values{"from_date": {"2025-02-01"}}, "from_date")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2025, d.Year())

	_, err = DateParam(url.Values{"from_date": {"01/02/2025"}}, "from_date")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
