package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAbsolute(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"2d", "2d"},
		{"1w 2d", "1w2d"},
		{"3Min", "3min"},
		{"1y2q3m4w5d6h7min8s", "1y2q3m4w5d6h7min8s"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.raw, TypeAbsolute)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "d2", "2x", "two days", "2d extra", "++2d"} {
		_, err := Normalize(raw, TypeAbsolute, TypeRelative)
		assert.ErrorIs(t, err, ErrCantParse, raw)
	}
}

func TestNormalizeSignRules(t *testing.T) {
	// Absolute-only: a sign is not allowed.
	_, err := Normalize("+2d", TypeAbsolute)
	assert.ErrorIs(t, err, ErrCantParse)

	// Relative-only: a sign is required.
	_, err = Normalize("2d", TypeRelative)
	assert.ErrorIs(t, err, ErrCantParse)

	got, err := Normalize("-2d", TypeRelative)
	require.NoError(t, err)
	assert.Equal(t, "-2d", got)

	// Both allowed: sign is optional.
	got, err = Normalize("+1h", TypeAbsolute, TypeRelative)
	require.NoError(t, err)
	assert.Equal(t, "+1h", got)
}

func TestNullAndInfiniteAlwaysAccepted(t *testing.T) {
	got, err := Normalize("0", TypeRelative)
	require.NoError(t, err)
	assert.True(t, IsNull(got))

	got, err = Normalize("INF", TypeAbsolute)
	require.NoError(t, err)
	assert.True(t, IsInfinite(got))
}

func TestParseAbs(t *testing.T) {
	const day = 24 * time.Hour
	cases := []struct {
		normalized string
		want       time.Duration
	}{
		{"45s", 45 * time.Second},
		{"3min", 3 * time.Minute},
		{"2h30min", 2*time.Hour + 30*time.Minute},
		{"1w2d", 9 * day},
		{"1m", 30 * day},
		{"1q", 120 * day},
		{"1y", 365 * day},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseAbs(tc.normalized), tc.normalized)
	}
}

func TestParseRel(t *testing.T) {
	assert.Equal(t, 2*time.Hour, ParseRel("+2h"))
	assert.Equal(t, -36*time.Hour, ParseRel("-1d12h"))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeAbsolute, TypeOf("2d"))
	assert.Equal(t, TypeRelative, TypeOf("+2d"))
	assert.Equal(t, TypeRelative, TypeOf("-1h"))
}
