package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

const scenarioYAML = `name: one_dmc
description: "a single DMC experiment matches an unbounded DMC selection"
records:
  - CompositionID: "DMC|100|LiPF6|1"
    Date: "1/15/2024"
    Trial: "1"
filter:
  Solvents:
    DMC: [null, null]
expect:
  count: 1
`

func TestTestCommand_MissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommand_NonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_HarnessScenariosPass(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ component_or")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--filter", "component_*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "one_dmc.yaml"), []byte(scenarioYAML), 0644))

	out, err := execute(t, "test", scenarios, "--update")
	require.NoError(t, err, out)

	golden := filepath.Join(root, "golden", "one_dmc.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, "DMC_Percentage\n100\n", string(data))

	_, err = execute(t, "test", scenarios)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte("DMC_Percentage\n50\n"), 0644))
	out, err = execute(t, "test", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ one_dmc")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommand_ExpectationFailure(t *testing.T) {
	scenarios := t.TempDir()
	bad := scenarioYAML[:len(scenarioYAML)-len("  count: 1\n")] + "  count: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "one_dmc.yaml"), []byte(bad), 0644))

	out, err := execute(t, "test", scenarios, "--golden-dir", filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ one_dmc")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}
