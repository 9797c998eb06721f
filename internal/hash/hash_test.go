package hash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marinoska/cv-ingest/internal/hash"
)

func TestBytes_Stable(t *testing.T) {
	a := hash.Bytes([]byte("same content"))
	b := hash.Bytes([]byte("same content"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestBytes_DiffersOnContent(t *testing.T) {
	assert.NotEqual(t, hash.Bytes([]byte("one")), hash.Bytes([]byte("two")))
}
