package mmap

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arloliu/shufflepack/errs"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "spill.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func patternBytes(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}

	return b
}

func TestOpen_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "absent.bin"), 4096)
		require.ErrorIs(t, err, errs.ErrIO)
	})

	t.Run("negative prefetch", func(t *testing.T) {
		_, err := Open(writeTempFile(t, []byte("data")), -1)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := Open(writeTempFile(t, []byte("data")), 0, WithLogger(nil))
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestReader_ShortRead(t *testing.T) {
	path := writeTempFile(t, patternBytes(10))

	r, err := Open(path, 4096, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer r.Close()

	// Asking for more than the file holds returns the short remainder.
	p := make([]byte, 100)
	n, err := r.Read(p)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, patternBytes(10), p[:n])

	pos, err := r.Tell()
	require.NoError(t, err)
	require.Equal(t, int64(10), pos)

	// Every read past that is a clean EOF.
	for i := 0; i < 3; i++ {
		n, err = r.Read(p)
		require.Equal(t, 0, n)
		require.ErrorIs(t, err, io.EOF)
	}
}

func TestReader_SequentialRead(t *testing.T) {
	src := patternBytes(256 * 1024)
	path := writeTempFile(t, src)

	r, err := Open(path, 8192)
	require.NoError(t, err)
	defer r.Close()

	var got bytes.Buffer
	chunk := make([]byte, 1000)
	for {
		n, err := r.Read(chunk)
		got.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		pos, err := r.Tell()
		require.NoError(t, err)
		require.Equal(t, int64(got.Len()), pos)
	}

	require.Equal(t, src, got.Bytes())
}

func TestReader_Next(t *testing.T) {
	src := patternBytes(1000)
	path := writeTempFile(t, src)

	r, err := Open(path, 0)
	require.NoError(t, err)
	defer r.Close()

	head, err := r.Next(300)
	require.NoError(t, err)
	require.Equal(t, src[:300], head)

	empty, err := r.Next(0)
	require.NoError(t, err)
	require.Empty(t, empty)

	// Requests past the remainder are clamped, not failed.
	tail, err := r.Next(10_000)
	require.NoError(t, err)
	require.Equal(t, src[300:], tail)

	_, err = r.Next(1)
	require.ErrorIs(t, err, io.EOF)

	pos, err := r.Tell()
	require.NoError(t, err)
	require.Equal(t, int64(1000), pos)
}

func TestReader_BoundedResidency(t *testing.T) {
	pageSize := int64(os.Getpagesize())
	prefetch := pageSize
	src := patternBytes(int(40 * pageSize))
	path := writeTempFile(t, src)

	r, err := Open(path, prefetch)
	require.NoError(t, err)
	defer r.Close()

	if r.data == nil {
		t.Skip("memory mapping unavailable on this platform")
	}
	require.Equal(t, prefetch, r.prefetch)

	chunk := make([]byte, pageSize/3)
	var total int64
	for {
		n, err := r.Read(chunk)
		total += int64(n)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		// The advised span never exceeds three prefetch windows and the
		// fetch watermark keeps ahead of the cursor.
		require.LessOrEqual(t, r.posFetch-r.posRetain, 3*r.prefetch)
		require.GreaterOrEqual(t, r.posFetch, r.pos)
		require.LessOrEqual(t, r.pos-r.posRetain, 2*r.prefetch)
	}

	require.Equal(t, r.size, total)
	require.Equal(t, r.size, r.posFetch)
	require.Positive(t, r.posRetain)
}

func TestReader_PrefetchDisabled(t *testing.T) {
	src := patternBytes(64 * 1024)
	path := writeTempFile(t, src)

	r, err := Open(path, 0)
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, src, got)

	// No advisories fire without a prefetch window.
	require.Zero(t, r.posFetch)
	require.Zero(t, r.posRetain)
}

func TestReader_EmptyFile(t *testing.T) {
	path := writeTempFile(t, nil)

	r, err := Open(path, 4096)
	require.NoError(t, err)
	defer r.Close()

	n, err := r.Read(make([]byte, 10))
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)

	_, err = r.Next(10)
	require.ErrorIs(t, err, io.EOF)

	pos, err := r.Tell()
	require.NoError(t, err)
	require.Zero(t, pos)
}

func TestReader_Close(t *testing.T) {
	path := writeTempFile(t, patternBytes(100))

	r, err := Open(path, 4096)
	require.NoError(t, err)
	require.False(t, r.Closed())

	require.NoError(t, r.Close())
	require.True(t, r.Closed())

	// Idempotent: the second close is a no-op.
	require.NoError(t, r.Close())

	_, err = r.Read(make([]byte, 10))
	require.ErrorIs(t, err, errs.ErrStreamClosed)
	require.ErrorIs(t, err, errs.ErrIO)

	_, err = r.Next(10)
	require.ErrorIs(t, err, errs.ErrStreamClosed)

	_, err = r.Tell()
	require.ErrorIs(t, err, errs.ErrStreamClosed)
}
