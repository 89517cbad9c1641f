package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDemoScenarioGolden(t *testing.T) {
	scenario, err := LoadScenario("testdata/demo.yaml")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}
