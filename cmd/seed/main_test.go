package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classify/catalog/internal/config"
	"github.com/classify/catalog/pkg/logger"
)

func TestRun_BuiltInCatalog(t *testing.T) {
	cfg, err := config.LoadFrom(nil)
	require.NoError(t, err)

	require.NoError(t, run(context.Background(), cfg, "", false, logger.Discard()))
}

func TestRun_DryRunFromFile(t *testing.T) {
	cfg, err := config.LoadFrom(nil)
	require.NoError(t, err)

	require.NoError(t, run(context.Background(), cfg, "../../internal/seed/testdata/catalog.yaml", true, logger.Discard()))
}

func TestRun_MissingFile(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"SEED_FILE": "nope.yaml"})
	require.NoError(t, err)

	err = run(context.Background(), cfg, "", false, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open seed file")
}

func TestSource(t *testing.T) {
	assert.Equal(t, "built-in", source(""))
	assert.Equal(t, "a.yaml", source("a.yaml"))
}
