package spill

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/format"
	"github.com/arloliu/shufflepack/schema"
	"github.com/arloliu/shufflepack/shuffle"
)

func payloadBytes(size, seed int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i + seed)
	}

	return b
}

// packBatch packs one payload into an envelope, tagging it with numRows so
// replay order is observable.
func packBatch(t *testing.T, numRows int, payload []byte) *shuffle.PackedRecordBatch {
	t.Helper()

	packer, err := shuffle.NewPacker(
		shuffle.WithCompression(format.CompressionLZ4),
		shuffle.WithCompressThreshold(64),
	)
	require.NoError(t, err)

	ws := schema.NewSchema([]schema.Field{{Name: "payload", Type: schema.TypeLargeBinary}})
	batch, err := packer.Compressed(numRows, []*memory.Buffer{memory.NewBufferBytes(payload)}, ws, nil)
	require.NoError(t, err)

	return batch
}

func unpackPayload(t *testing.T, batch *shuffle.PackedRecordBatch) []byte {
	t.Helper()

	unpacker, err := shuffle.NewUnpacker()
	require.NoError(t, err)

	buffers, err := unpacker.Unpack(batch)
	require.NoError(t, err)
	require.Len(t, buffers, 1)

	out := bytes.Clone(buffers[0].Bytes())
	buffers[0].Release()

	return out
}

func TestSpill_RoundTrip(t *testing.T) {
	logger := zaptest.NewLogger(t)
	dir := filepath.Join(t.TempDir(), "07")

	payloads := [][]byte{
		payloadBytes(10_000, 1),
		payloadBytes(33, 2),
		{},
		payloadBytes(4096, 3),
		payloadBytes(1, 4),
	}

	w, err := Create(dir, WithWriterLogger(logger))
	require.NoError(t, err)
	path := w.Path()
	require.NotEmpty(t, path)

	var total int64
	for i, p := range payloads {
		batch := packBatch(t, i+1, p)
		n, err := w.Write(batch)
		require.NoError(t, err)
		require.Equal(t, batch.Size(), n)
		total += n
		batch.Release()
	}
	require.Equal(t, total, w.BytesWritten())
	require.Equal(t, len(payloads), w.Batches())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, total, st.Size())

	r, err := Open(path, 4096, WithReaderLogger(logger))
	require.NoError(t, err)

	for i, p := range payloads {
		batch, err := r.Next()
		require.NoError(t, err)
		require.Equal(t, i+1, batch.NumRows())
		require.Equal(t, p, unpackPayload(t, batch))
		batch.Release()
	}

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, len(payloads), r.Batches())

	pos, err := r.Tell()
	require.NoError(t, err)
	require.Equal(t, total, pos)

	require.NoError(t, r.Close())
	require.True(t, r.Closed())
	require.NoError(t, r.Close())
}

func TestWriter_WrapSink(t *testing.T) {
	var sink bytes.Buffer

	w, err := NewWriter(&sink, WithWriteBufferSize(128))
	require.NoError(t, err)
	require.Empty(t, w.Path())

	payload := payloadBytes(5000, 9)
	batch := packBatch(t, 3, payload)
	_, err = w.Write(batch)
	require.NoError(t, err)
	batch.Release()

	require.NoError(t, w.Flush())
	require.Equal(t, w.BytesWritten(), int64(sink.Len()))

	// The sink holds one parseable envelope.
	read, err := shuffle.ReadPackedRecordBatch(&sink, nil)
	require.NoError(t, err)
	require.Equal(t, 3, read.NumRows())
	require.Equal(t, payload, unpackPayload(t, read))
	read.Release()

	require.NoError(t, w.Close())

	_, err = w.Write(packBatch(t, 1, []byte("late")))
	require.ErrorIs(t, err, errs.ErrStreamClosed)
	require.ErrorIs(t, w.Flush(), errs.ErrStreamClosed)
}

func TestWriter_Validation(t *testing.T) {
	t.Run("nil sink", func(t *testing.T) {
		_, err := NewWriter(nil)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("bad options", func(t *testing.T) {
		_, err := NewWriter(&bytes.Buffer{}, WithWriterLogger(nil))
		require.ErrorIs(t, err, errs.ErrInvalidArgument)

		_, err = NewWriter(&bytes.Buffer{}, WithWriteBufferSize(0))
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})

	t.Run("nil and released batches", func(t *testing.T) {
		w, err := NewWriter(&bytes.Buffer{})
		require.NoError(t, err)

		_, err = w.Write(nil)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)

		batch := packBatch(t, 1, []byte("gone"))
		batch.Release()
		_, err = w.Write(batch)
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestReader_EmptySpillFile(t *testing.T) {
	dir := t.TempDir()

	w, err := Create(dir)
	require.NoError(t, err)
	path := w.Path()
	require.NoError(t, w.Close())

	r, err := Open(path, 0)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, r.Batches())
}

func TestReader_TruncatedSpillFile(t *testing.T) {
	dir := t.TempDir()

	w, err := Create(dir)
	require.NoError(t, err)
	path := w.Path()

	first := packBatch(t, 1, payloadBytes(2000, 5))
	_, err = w.Write(first)
	require.NoError(t, err)
	first.Release()

	second := packBatch(t, 2, payloadBytes(3000, 6))
	_, err = w.Write(second)
	require.NoError(t, err)
	second.Release()

	size := w.BytesWritten()
	require.NoError(t, w.Close())

	// Chop the tail off the second envelope.
	require.NoError(t, os.Truncate(path, size-3))

	r, err := Open(path, 4096)
	require.NoError(t, err)
	defer r.Close()

	batch, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, 1, batch.NumRows())
	batch.Release()

	_, err = r.Next()
	require.ErrorIs(t, err, errs.ErrTruncatedBatch)
}

func TestOpen_MissingSpillFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.bin"), 0)
	require.ErrorIs(t, err, errs.ErrIO)
}

func TestSpill_ManyBatches(t *testing.T) {
	dir := t.TempDir()

	w, err := Create(dir, WithWriteBufferSize(256))
	require.NoError(t, err)
	path := w.Path()

	const numBatches = 100
	for i := 0; i < numBatches; i++ {
		batch := packBatch(t, i, payloadBytes(100+i*13, i))
		_, err := w.Write(batch)
		require.NoError(t, err)
		batch.Release()
	}
	require.NoError(t, w.Close())

	// A small prefetch window forces the advisory watermarks to cycle
	// while replaying.
	r, err := Open(path, 512)
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < numBatches; i++ {
		batch, err := r.Next()
		require.NoError(t, err, "batch %d", i)
		require.Equal(t, i, batch.NumRows())
		require.Equal(t, payloadBytes(100+i*13, i), unpackPayload(t, batch))
		batch.Release()
	}

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestSpillDirLayout(t *testing.T) {
	base := t.TempDir()

	// One writer per hex subdir, the way partition spills fan out.
	for _, id := range []int32{0, 11, 42} {
		w, err := Create(SpillDir(base, id))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		require.Equal(t, fmt.Sprintf("%02x", id), filepath.Base(filepath.Dir(w.Path())))
	}
}
