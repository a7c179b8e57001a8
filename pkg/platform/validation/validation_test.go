package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

func TestFieldChecks(t *testing.T) {
	t.Run("required rejects blank", func(t *testing.T) {
		err := Required("   ", "title")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "title is required", err.Error())
	})

	t.Run("max length counts runes", func(t *testing.T) {
		assert.NoError(t, MaxLength(strings.Repeat("ж", 5), 5, "name"))
		assert.Error(t, MaxLength(strings.Repeat("ж", 6), 5, "name"))
	})

	t.Run("min length", func(t *testing.T) {
		assert.Error(t, MinLength("short", 100, "motivation"))
		assert.NoError(t, MinLength(strings.Repeat("a", 100), 100, "motivation"))
	})

	t.Run("one of", func(t *testing.T) {
		assert.NoError(t, OneOf("webinar", []string{"webinar", "training"}, "category"))
		err := OneOf("party", []string{"webinar", "training"}, "category")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webinar, training")
	})

	t.Run("range is inclusive", func(t *testing.T) {
		assert.NoError(t, Range(0.5, 0.5, 100, "hours"))
		assert.NoError(t, Range(100, 0, 100, "progress"))
		assert.Error(t, Range(101, 0, 100, "progress"))
	})

	t.Run("first keeps argument order", func(t *testing.T) {
		a, b := errors.New("a"), errors.New("b")
		assert.Equal(t, a, First(nil, a, b))
		assert.NoError(t, First(nil, nil))
	})
}
