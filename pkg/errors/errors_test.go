package errors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/docsync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestArtifactFormatError(t *testing.T) {
	t.Run("with node and field", func(t *testing.T) {
		err := pkgerrors.NewArtifactFormatError("manifest", "model.shop.orders", "schema", "missing")
		assert.Equal(t, "invalid manifest: node model.shop.orders: field schema: missing", err.Error())
		assert.True(t, pkgerrors.IsArtifactFormat(err))
	})

	t.Run("without node", func(t *testing.T) {
		err := pkgerrors.NewArtifactFormatError("catalog", "", "metadata.dbt_schema_version", "unsupported version v9")
		assert.Equal(t, "invalid catalog: field metadata.dbt_schema_version: unsupported version v9", err.Error())
	})

	t.Run("wrapped decode error", func(t *testing.T) {
		base := errors.New("unexpected end of JSON input")
		err := pkgerrors.WrapArtifact("manifest", base)
		assert.True(t, pkgerrors.IsArtifactFormat(err))
		assert.ErrorIs(t, err, base)
		assert.Nil(t, pkgerrors.WrapArtifact("manifest", nil))
	})
}

func TestAuthenticationError(t *testing.T) {
	base := errors.New("401 Unauthorized")
	err := &pkgerrors.AuthenticationError{
		Platform:   "superset",
		Method:     "password",
		StatusCode: 401,
		Message:    "invalid credentials",
		Err:        base,
	}

	assert.Contains(t, err.Error(), "superset")
	assert.Contains(t, err.Error(), "status 401")
	assert.True(t, pkgerrors.IsAuthentication(err))
	assert.False(t, pkgerrors.IsTransient(err))
	assert.ErrorIs(t, err, base)

	wrapped := fmt.Errorf("login: %w", err)
	var authErr *pkgerrors.AuthenticationError
	require.True(t, errors.As(wrapped, &authErr))
	assert.Equal(t, "password", authErr.Method)
}

func TestTransientNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         *pkgerrors.TransientNetworkError
		rateLimited bool
		contains    string
	}{
		{
			name:        "rate limited",
			err:         &pkgerrors.TransientNetworkError{Method: "GET", Endpoint: "/dataset/", StatusCode: 429, Attempts: 3, Message: "slow down"},
			rateLimited: true,
			contains:    "status 429",
		},
		{
			name:     "server error",
			err:      &pkgerrors.TransientNetworkError{Method: "PUT", Endpoint: "/dataset/1", StatusCode: 503, Attempts: 3, Message: "unavailable"},
			contains: "status 503",
		},
		{
			name:     "timeout without status",
			err:      &pkgerrors.TransientNetworkError{Method: "GET", Endpoint: "/dataset/1", Attempts: 1, Err: errors.New("i/o timeout")},
			contains: "i/o timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, pkgerrors.IsTransient(tt.err))
			assert.Equal(t, tt.rateLimited, pkgerrors.IsRateLimited(tt.err))
			assert.Contains(t, tt.err.Error(), tt.contains)
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := pkgerrors.NewNotFoundError("dataset", "42")
	assert.Equal(t, "dataset with ID 42 not found", err.Error())
	assert.True(t, pkgerrors.IsNotFound(err))

	wrapped := errors.Join(errors.New("failed"), err)
	assert.True(t, pkgerrors.IsNotFound(wrapped))
}

func TestValidationError(t *testing.T) {
	err := pkgerrors.NewValidationError("concurrency", 0, "must be between 1 and 8")
	assert.Equal(t, "validation failed for field concurrency: must be between 1 and 8", err.Error())
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestWrapHelpers(t *testing.T) {
	base := errors.New("boom")

	ioErr := pkgerrors.WrapIO("read", "target/manifest.json", base)
	assert.Contains(t, ioErr.Error(), "target/manifest.json")
	assert.ErrorIs(t, ioErr, base)

	resErr := pkgerrors.WrapResource("update", "column", "7", base)
	assert.Equal(t, "failed to update column 7: boom", resErr.Error())

	parseErr := pkgerrors.WrapParse("yaml", "defaults.yml", base)
	assert.Contains(t, parseErr.Error(), "defaults.yml")

	assert.Nil(t, pkgerrors.WrapIO("read", "x", nil))
	assert.Nil(t, pkgerrors.WrapResource("get", "dataset", "1", nil))
	assert.Nil(t, pkgerrors.WrapParse("json", "", nil))
}
