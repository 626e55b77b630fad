package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRarityTable(t *testing.T) {
	table := DefaultRarityTable()
	require.Len(t, table, 8)

	// Weights approximately sum to 1 over the eight types.
	var sum float64
	for _, w := range table {
		sum += w
	}
	require.InDelta(t, 1.0, sum, 0.01)

	require.Greater(t, table.Weight(BloodType{ABOGroupB, RhPositive}),
		table.Weight(BloodType{ABOGroupB, RhNegative}))
}

func TestRarityTable_MissingKeyWeighsZero(t *testing.T) {
	table := RarityTable{"O+": 0.5}
	require.Zero(t, table.Weight(BloodType{ABOGroupAB, RhNegative}))
}

func TestLoadRarityTable_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rarity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("B-: 0.2\nAB-: 0.05\n"), 0o600))

	table, err := LoadRarityTable(path)
	require.NoError(t, err)
	require.Equal(t, 0.2, table["B-"])
	require.Equal(t, 0.05, table["AB-"])
	require.Equal(t, 0.37, table["O+"], "untouched defaults survive")
}

func TestLoadRarityTable_RejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	badKey := filepath.Join(dir, "badkey.yaml")
	require.NoError(t, os.WriteFile(badKey, []byte("XY+: 0.2\n"), 0o600))
	_, err := LoadRarityTable(badKey)
	require.Error(t, err)

	badWeight := filepath.Join(dir, "badweight.yaml")
	require.NoError(t, os.WriteFile(badWeight, []byte("O+: 1.5\n"), 0o600))
	_, err = LoadRarityTable(badWeight)
	require.Error(t, err)

	_, err = LoadRarityTable(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
