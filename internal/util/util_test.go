package util

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	a, b := NewULID(), NewULID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.True(t, IsULID(a))
	assert.False(t, IsULID("not-a-ulid"))
}

func TestRandomHex(t *testing.T) {
	code, err := RandomHex(5)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{5}$`), code)

	empty, err := RandomHex(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCeilDiv(t *testing.T) {
	tests := []struct{ n, d, want int }{
		{10, 10, 1},
		{11, 10, 2},
		{1, 10, 1},
		{0, 10, 0},
		{25, 2, 13},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CeilDiv(tt.n, tt.d), "CeilDiv(%d, %d)", tt.n, tt.d)
	}
}

func TestStringToNullString(t *testing.T) {
	assert.False(t, StringToNullString("").Valid)
	ns := StringToNullString("focus on chapter 3")
	assert.True(t, ns.Valid)
	assert.Equal(t, "focus on chapter 3", ns.String)
}
