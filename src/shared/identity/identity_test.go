package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDappIDDeterministic(t *testing.T) {
	a, err := DeriveDappID("Uniswap", "https://app.uniswap.org")
	require.NoError(t, err)
	b, err := DeriveDappID("Uniswap", "https://app.uniswap.org")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeriveDappIDNameCaseInsensitive(t *testing.T) {
	a, err := DeriveDappID("Foo", "https://x.com")
	require.NoError(t, err)
	b, err := DeriveDappID("foo", "https://x.com")
	require.NoError(t, err)
	c, err := DeriveDappID("FOO", "https://x.com")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestDeriveDappIDURLVerbatim(t *testing.T) {
	a, err := DeriveDappID("Foo", "https://x.com")
	require.NoError(t, err)
	b, err := DeriveDappID("Foo", "https://x.com/")
	require.NoError(t, err)
	c, err := DeriveDappID("Foo", "HTTPS://x.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDeriveDappIDDistinctNames(t *testing.T) {
	a, err := DeriveDappID("foo", "https://x.com")
	require.NoError(t, err)
	b, err := DeriveDappID("bar", "https://x.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeriveDappIDEmptyInputs(t *testing.T) {
	_, err := DeriveDappID("", "https://x.com")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = DeriveDappID("foo", "")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = DeriveDappID("", "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHex(t *testing.T) {
	id, err := DeriveDappID("foo", "https://x.com")
	require.NoError(t, err)
	h := Hex(id)
	assert.True(t, strings.HasPrefix(h, "0x"))
	assert.Len(t, h, 66)
}
