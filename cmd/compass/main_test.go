package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/compass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("COMPASS_LOG_LEVEL", "off")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "compass version "+compass.Version()+"\n", out)
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "intent_router")
	assert.Contains(t, out, "report_itinerary")
}

func TestPlanImportAndList(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "trip.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"destination": "Tainan",
		"start_date": "2025-05-01",
		"days": [{"date": "2025-05-01", "location": "Tainan", "segments": []}]
	}`), 0o644))
	t.Setenv("COMPASS_PLANS_DSN", "file:"+filepath.Join(dir, "plans.db"))

	out, err := execute(t, "plan", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved plan")

	out, err = execute(t, "plan", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Tainan")
}

func TestSessionRmRequiresTarget(t *testing.T) {
	_, err := execute(t, "session", "rm")
	assert.ErrorContains(t, err, "--all")
}
