package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDCursorRoundTrip(t *testing.T) {
	c := NewHMAC([]byte("secret"))
	token := c.EncodeIDCursor(42)
	id, err := c.DecodeIDCursor(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTamperedCursorRejected(t *testing.T) {
	c := NewHMAC([]byte("secret"))
	token := c.EncodeIDCursor(42)
	_, err := c.DecodeIDCursor(token[:len(token)-2] + "zz")
	assert.Error(t, err)
}

func TestCursorFromOtherKeyRejected(t *testing.T) {
	a := NewHMAC([]byte("key-a"))
	b := NewHMAC([]byte("key-b"))
	_, err := b.DecodeIDCursor(a.EncodeIDCursor(7))
	assert.Error(t, err)
}

func TestGarbageCursorRejected(t *testing.T) {
	c := NewHMAC([]byte("secret"))
	for _, token := range []string{"", "x", "not base64!!"} {
		_, err := c.DecodeIDCursor(token)
		assert.Error(t, err, "token %q", token)
	}
}
