package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReevesError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	wrapped := Store("write failed", originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, originalErr, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, originalErr))
}

func TestReevesError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *ReevesError
		expected string
	}{
		{
			name:     "extractor error without cause",
			err:      Extractor("failed to load packages", nil),
			expected: "[EXTRACTOR] failed to load packages",
		},
		{
			name:     "store error with cause",
			err:      Store("bucket missing", errors.New("no such bucket")),
			expected: "[STORE] bucket missing: no such bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestReevesError_Is_MatchesByCategory(t *testing.T) {
	err1 := Store("crate A write failed", nil)
	err2 := Store("crate B write failed", nil)

	assert.True(t, errors.Is(err1, ErrStore))
	assert.False(t, errors.Is(err1, ErrQuery))
	assert.False(t, errors.Is(err1, err2)) // distinct messages don't match each other
}

func TestReevesError_Is_MatchesSentinelRegardlessOfMessage(t *testing.T) {
	err := Extractor("anything", nil)
	assert.True(t, errors.Is(err, ErrExtractor))
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"extractor", Extractor("x", nil), CategoryExtractor},
		{"sandbox", Sandbox("x", nil), CategorySandbox},
		{"store", Store("x", nil), CategoryStore},
		{"query", Query("x", nil), CategoryQuery},
		{"bad request", BadRequest("x"), CategoryBadRequest},
		{"wrapped", fmtWrap(Query("x", nil)), CategoryQuery},
		{"plain error", errors.New("plain"), Category("")},
		{"nil", nil, Category("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.err))
		})
	}
}

// fmtWrap exercises CategoryOf's unwrap-chain walk via errors.As against a
// plain %w-wrapped error, not just a direct *ReevesError.
func fmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestBadRequest_HasNoCause(t *testing.T) {
	err := BadRequest("query missing 'ret' field")
	assert.Nil(t, err.Cause)
	assert.Equal(t, CategoryBadRequest, err.Category)
}
