package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaw_Overrides(t *testing.T) {
	raw := Raw("DMC|100|LiPF6|1", map[string]string{"Trial": "2", "Density": "1.2"})

	assert.Equal(t, "DMC|100|LiPF6|1", raw["CompositionID"])
	assert.Equal(t, "2", raw["Trial"])
	assert.Equal(t, "1.2", raw["Density"])
	assert.Equal(t, "1/15/2024", raw["Date"])
}

func TestSeed(t *testing.T) {
	s := OpenStore(t)

	ids := Seed(t, s,
		Raw("DMC|100|LiPF6|1", nil),
		Raw("EMC|100|LiPF6|1", nil),
		Raw("DMC|100|LiPF6|1", nil),
	)
	require.Len(t, ids, 3)
	assert.Equal(t, ids[0], ids[2])

	total, err := s.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
