package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger, err := New("execution-service", "local", "")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = New("execution-service", "production", "warn")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = New("execution-service", "production", "loud")
	assert.Error(t, err)
}
