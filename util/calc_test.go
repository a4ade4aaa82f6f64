package util

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func decs(values ...string) []math.LegacyDec {
	out := make([]math.LegacyDec, len(values))
	for i, v := range values {
		out[i] = math.LegacyMustNewDecFromStr(v)
	}
	return out
}

func TestCalcMean(t *testing.T) {
	require.Equal(t, "2.000000000000000000", CalcMean(decs("1", "2", "3")).String())
	require.True(t, CalcMean(nil).IsZero())
}

func TestCalcStandardDeviation(t *testing.T) {
	sd, err := CalcStandardDeviation(decs("2", "4", "4", "4", "5", "5", "7", "9"))
	require.NoError(t, err)
	require.Equal(t, "2.000000000000000000", sd.String())

	sd, err = CalcStandardDeviation(decs("3", "3"))
	require.NoError(t, err)
	require.True(t, sd.IsZero())
}

func TestCalcCoeficientOfVariation(t *testing.T) {
	cv, err := CalcCoeficientOfVariation(decs("1", "3"))
	require.NoError(t, err)
	require.Equal(t, "50.000000000000000000", cv.String())

	cv, err = CalcCoeficientOfVariation(decs("0", "0"))
	require.NoError(t, err)
	require.True(t, cv.IsZero())
}

func TestRelativeDeviation(t *testing.T) {
	testCases := []struct {
		value     string
		reference string
		expected  string
	}{
		{"1.05", "1", "0.050000000000000000"},
		{"0.95", "1", "0.050000000000000000"},
		{"2", "2", "0.000000000000000000"},
		{"1", "0", "0.000000000000000000"},
	}

	for _, tc := range testCases {
		got := RelativeDeviation(
			math.LegacyMustNewDecFromStr(tc.value),
			math.LegacyMustNewDecFromStr(tc.reference),
		)
		require.Equal(t, tc.expected, got.String(), "%s vs %s", tc.value, tc.reference)
	}
}
