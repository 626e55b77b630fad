package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bloodbank.io/becs/internal/domain"
)

func TestBuildPlan(t *testing.T) {
	now := time.Now().UTC()
	units := buildPlan(40, now)

	seen := map[string]int{}
	for _, u := range units {
		require.Equal(t, domain.UnitStatusAvailable, u.Status)
		require.False(t, u.DonationDate.After(now))
		seen[u.Type.String()]++
	}
	require.Len(t, seen, 8, "every blood type gets stock")
	require.Greater(t, seen["O+"], seen["AB-"], "common types get more units")
}
