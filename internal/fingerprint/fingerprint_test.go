package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCollapsesWhitespaceAndCase(t *testing.T) {
	a, err := Normalize("  URGENT:   account\tblocked \n click here  ")
	require.NoError(t, err)

	b, err := Normalize("urgent: account blocked click here")
	require.NoError(t, err)

	assert.Equal(t, b, a)
	assert.Equal(t, "urgent: account blocked click here", a)
}

func TestNormalizeRejectsEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n  \t"} {
		_, err := Normalize(input)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
}

func TestFingerprintStableAcrossCosmeticDifferences(t *testing.T) {
	variants := []string{
		"URGENT account blocked",
		"urgent   account\tblocked",
		"  Urgent Account Blocked\n",
	}

	var first string
	for i, v := range variants {
		canonical, err := Normalize(v)
		require.NoError(t, err)
		fp := Fingerprint(canonical)
		assert.Len(t, fp, 64)
		if i == 0 {
			first = fp
			continue
		}
		assert.Equal(t, first, fp, "variant %q should fingerprint identically", v)
	}
}

func TestFingerprintDiffersOnSemanticChange(t *testing.T) {
	a, err := Normalize("urgent account blocked")
	require.NoError(t, err)
	b, err := Normalize("urgent account unblocked")
	require.NoError(t, err)

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintIsPure(t *testing.T) {
	canonical, err := Normalize("your swiggy otp is 1234")
	require.NoError(t, err)

	first := Fingerprint(canonical)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fingerprint(canonical))
	}
}
