package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key := DocumentKey(7, "Engagement Letter.pdf")
	require.NoError(t, s.Put(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))

	_, err = s.PresignGet(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrPresignUnsupported)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDiskStoreRejectsEscapes(t *testing.T) {
	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"../etc/passwd", "/abs/path", ".."} {
		assert.Error(t, s.Put(context.Background(), key, strings.NewReader("x"), 1, ""), key)
	}
}

func TestDocumentKey(t *testing.T) {
	key := DocumentKey(12, "../../Brief v2.docx")
	assert.Regexp(t, `^documents/12/[0-9a-f-]{36}/Brief_v2\.docx$`, key)
	assert.Regexp(t, `^documents/unfiled/`, DocumentKey(0, "a.txt"))
	assert.Equal(t, "file", SafeFilename("..."))
}
