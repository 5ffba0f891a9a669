package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/san-kum/trajgen/internal/dynamo"
)

func TestLoadBatch(t *testing.T) {
	path := writeFile(t, `
name: swing-ups
runs:
  - problem: pendulum
    preset: fast
    planner:
      segments_x: 6
  - problem: cartpole
  - problem: double_integrator
    preset: accurate
`)
	name, cfgs, err := LoadBatch(path)
	require.NoError(t, err)

	assert.Equal(t, "swing-ups", name)
	require.Len(t, cfgs, 3)

	assert.Equal(t, "pendulum", cfgs[0].Problem)
	assert.Equal(t, 6, cfgs[0].Planner.SegmentsX)
	assert.Equal(t, 3, cfgs[0].Planner.MaxRefinements, "fast preset")

	assert.False(t, cfgs[1].Planner.UseChains, "cartpole tuning")
	assert.Equal(t, "rk45", cfgs[2].Planner.SimIntegrator, "accurate preset")
}

func TestLoadBatchErrors(t *testing.T) {
	_, _, err := LoadBatch(writeFile(t, "name: empty\n"))
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)

	_, _, err = LoadBatch(writeFile(t, `
runs:
  - problem: pendulum
    preset: warp
  - problem: pendulum
    planner:
      degree: 0
  - problem: pendulum
`))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, ErrUnknownPreset)
}
