package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestDiscover_OrdersByFilename(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"002_projections.sql":  "SELECT 2;",
		"001_ledger_store.sql": "SELECT 1;",
		"README.md":            "ignored",
	})

	ms, err := discover(dir)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "001", ms[0].version)
	assert.Equal(t, "002_projections.sql", ms[1].filename)
	assert.Len(t, ms[0].checksum, 64)
	assert.NotEqual(t, ms[0].checksum, ms[1].checksum)
}

func TestDiscover_RejectsDuplicateVersions(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"001_a.sql": "SELECT 1;",
		"001_b.sql": "SELECT 2;",
	})
	_, err := discover(dir)
	assert.ErrorContains(t, err, "duplicate version 001")
}

func TestDiscover_RejectsBadNames(t *testing.T) {
	dir := writeFiles(t, map[string]string{"init.sql": "SELECT 1;"})
	_, err := discover(dir)
	assert.ErrorContains(t, err, "invalid migration filename")
}
