package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/validation"
)

type editRequest struct {
	URL   string   `json:"url" validate:"required,abs_url"`
	Title string   `json:"title,omitempty" validate:"max=500"`
	Mode  string   `json:"mode" validate:"omitempty,oneof=all favorites archived"`
	Tags  []string `json:"tag_names" validate:"omitempty,dive,max=64"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(editRequest{URL: "https://example.com/a", Title: "A", Mode: "favorites"})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       editRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing url",
			req:       editRequest{},
			wantField: "url",
			wantMsg:   "is required",
		},
		{
			name:      "relative url",
			req:       editRequest{URL: "/just/a/path"},
			wantField: "url",
			wantMsg:   "must be a valid URL that includes http or https",
		},
		{
			name:      "bad mode",
			req:       editRequest{URL: "https://a.test", Mode: "starred"},
			wantField: "mode",
			wantMsg:   "must be one of: all favorites archived",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
			assert.Equal(t, tt.wantField+" "+tt.wantMsg, domainErr.Message)
		})
	}
}

func TestValidator_MultipleFields(t *testing.T) {
	v := validation.New()

	err := v.Validate(editRequest{Mode: "nope"})
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "validation failed", domainErr.Message)
	assert.Len(t, domainErr.Details, 2)
}
