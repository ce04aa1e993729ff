package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "info")
	require.NoError(t, err)

	log.Info("remapped", "op", 3)
	log.V(1).Info("evaluated")

	out := buf.String()
	assert.Contains(t, out, "remapped")
	assert.Contains(t, out, `"op":3`)
	assert.NotContains(t, out, "evaluated")

	_, err = newLogger(&buf, "loud")
	assert.Error(t, err)
}
