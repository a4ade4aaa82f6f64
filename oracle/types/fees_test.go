package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateProtocolFee(t *testing.T) {
	testCases := []struct {
		name  string
		fee   uint32
		valid bool
	}{
		{"zero", 0, true},
		{"both directions at cap", 1000<<12 | 1000, true},
		{"asymmetric", 250<<12 | 500, true},
		{"zeroForOne over cap", 1001, false},
		{"oneForZero over cap", 1001 << 12, false},
		{"wider than 24 bits", 1 << 24, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateProtocolFee(tc.fee)
			if tc.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestNewPriceFromStrFees(t *testing.T) {
	dec, err := NewPriceFromStr("1.05")
	require.NoError(t, err)
	require.Equal(t, "1.050000000000000000", dec.String())

	_, err = NewPriceFromStr("")
	require.ErrorIs(t, err, ErrMissingParameter)

	for _, bad := range []string{"0", "-1", "abc", "NaN"} {
		_, err = NewPriceFromStr(bad)
		require.ErrorIs(t, err, ErrInvalidParameter, bad)
	}
}

func TestExternalFeedEntryFreshness(t *testing.T) {
	submitted := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	entry := ExternalFeedEntry{SubmittedAt: submitted, Valid: true}
	maxAge := time.Minute

	require.True(t, entry.IsUsable(submitted.Add(maxAge), maxAge))
	require.True(t, entry.IsStale(submitted.Add(maxAge+time.Second), maxAge))
	require.False(t, entry.IsUsable(submitted.Add(maxAge+time.Second), maxAge))

	entry.Valid = false
	require.False(t, entry.IsUsable(submitted, maxAge))
}
