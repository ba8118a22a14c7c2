package deploy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalePremintAppendsZeros(t *testing.T) {
	cases := map[string]string{
		"5":    "5000000000000000000",
		"0":    "0000000000000000000",
		" 42 ": "42000000000000000000",
		"007":  "007000000000000000000",
	}
	for in, want := range cases {
		got, err := ScalePremint(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	wide := "123456789012345678901234567890"
	got, err := ScalePremint(wide)
	require.NoError(t, err)
	require.Equal(t, wide+strings.Repeat("0", 18), got)
}

func TestScalePremintRejects(t *testing.T) {
	for _, in := range []string{"", "  ", "-5", "+5", "1.5", "1e3", "abc", "1_000", "٣", "5 5"} {
		_, err := ScalePremint(in)
		require.ErrorIs(t, err, ErrInvalidPremint, in)
	}
}

func TestScalePremintUint256Bound(t *testing.T) {
	// 2^256-1 has 78 digits; 59 ones plus 18 zeros fit, 61 nines do not.
	_, err := ScalePremint(strings.Repeat("1", 59))
	require.NoError(t, err)

	_, err = ScalePremint(strings.Repeat("9", 61))
	require.ErrorIs(t, err, ErrInvalidPremint)
}
