package fieldlog

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/scalarfield/pkg/codec"
)

func frame(h, w int, seed float32) *codec.ScalarField {
	f, err := codec.NewScalarField(h, w)
	if err != nil {
		panic(err)
	}
	for i := range f.Data {
		f.Data[i] = seed * float32(i+1)
	}
	return f
}

func writeFrames(t *testing.T, path string, frames ...*codec.ScalarField) []int64 {
	t.Helper()
	w, err := NewWriter(WriterConfig{Path: path, BufferSize: 4096})
	require.NoError(t, err)
	offsets := make([]int64, 0, len(frames))
	for _, f := range frames {
		off, err := w.Append(f)
		require.NoError(t, err)
		offsets = append(offsets, off)
	}
	require.NoError(t, w.Close())
	return offsets
}

func TestNewWriter_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "frames.sfl")

	w, err := NewWriter(WriterConfig{Path: path})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int64(0), w.Size())
	assert.Equal(t, path, w.Path())
	require.NoError(t, w.Close())
}

func TestWriter_AppendOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.sfl")
	a, b := frame(2, 1, 1), frame(3, 3, -0.5)

	offsets := writeFrames(t, path, a, b)
	assert.Equal(t, []int64{0, int64(a.EncodedSize())}, offsets)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(a.EncodedSize()+b.EncodedSize()), info.Size())
}

func TestWriter_ReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.sfl")
	first := frame(1, 1, 2)
	writeFrames(t, path, first)

	w, err := NewWriter(WriterConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, int64(first.EncodedSize()), w.Size())
	off, err := w.Append(frame(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(first.EncodedSize()), off)
	require.NoError(t, w.Close())
}

func TestWriter_RejectsInvalidField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.sfl")
	w, err := NewWriter(WriterConfig{Path: path})
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(&codec.ScalarField{Height: 2, Width: 2, Data: []float32{1, 2, 3}})
	assert.ErrorIs(t, err, codec.ErrInvalidShape)
	assert.Equal(t, int64(0), w.Size())
}

func TestWriter_FsyncInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.sfl")
	w, err := NewWriter(WriterConfig{Path: path, FsyncInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = w.Append(frame(2, 2, 1))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		info, err := os.Stat(path)
		return err == nil && info.Size() == int64(12+16)
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Close())
}

func TestReader_Sequential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.sfl")
	nan := frame(1, 3, 1)
	nan.Data[1] = float32(math.NaN())
	frames := []*codec.ScalarField{frame(2, 2, 1), nan, frame(4, 1, -2)}
	writeFrames(t, path, frames...)

	r, err := NewReader(ReaderConfig{Path: path})
	require.NoError(t, err)
	defer r.Close()

	for _, want := range frames {
		got, err := r.Next()
		require.NoError(t, err)
		assert.True(t, got.Equal(want))
	}
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_StartOffsetAndReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.sfl")
	a, b := frame(2, 2, 1), frame(1, 5, 3)
	offsets := writeFrames(t, path, a, b)

	r, err := NewReader(ReaderConfig{Path: path, StartOffset: offsets[1]})
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Next()
	require.NoError(t, err)
	assert.True(t, got.Equal(b))

	got, err = r.ReadAt(offsets[0])
	require.NoError(t, err)
	assert.True(t, got.Equal(a))
	assert.Equal(t, offsets[1]+int64(b.EncodedSize()), r.Offset())

	_, err = r.ReadAt(offsets[0] + 1)
	assert.ErrorIs(t, err, ErrCorruption)
	assert.ErrorIs(t, err, codec.ErrBadMagic)

	_, err = r.ReadAt(offsets[1] + int64(b.EncodedSize()))
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestReader_PartialTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.sfl")
	a := frame(2, 2, 1)
	writeFrames(t, path, a, frame(3, 3, 1))

	// Simulate a crash halfway through the second frame.
	require.NoError(t, os.Truncate(path, int64(a.EncodedSize()+20)))

	r, err := NewReader(ReaderConfig{Path: path})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrCorruption)
	assert.ErrorIs(t, err, codec.ErrTruncatedBuffer)
	assert.Equal(t, int64(a.EncodedSize()), r.Offset())
}

func TestScanAndTruncate(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		res, err := Scan(filepath.Join(dir, "missing.sfl"))
		require.NoError(t, err)
		assert.Equal(t, ScanResult{}, res)
	})

	t.Run("intact log", func(t *testing.T) {
		path := filepath.Join(dir, "intact.sfl")
		writeFrames(t, path, frame(1, 1, 1), frame(2, 2, 2))

		res, err := Truncate(path)
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Frames)
		assert.False(t, res.Damaged)
		assert.False(t, res.Truncated)
		assert.Equal(t, res.FileSize, res.ValidSize)
	})

	t.Run("damaged tail", func(t *testing.T) {
		path := filepath.Join(dir, "damaged.sfl")
		first := frame(2, 3, 1)
		writeFrames(t, path, first)

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
		require.NoError(t, err)
		_, err = f.Write([]byte("SF01\x04\x00"))
		require.NoError(t, err)
		require.NoError(t, f.Close())

		res, err := Scan(path)
		require.NoError(t, err)
		assert.True(t, res.Damaged)
		assert.Equal(t, int64(1), res.Frames)
		assert.Equal(t, int64(first.EncodedSize()), res.ValidSize)

		res, err = Truncate(path)
		require.NoError(t, err)
		assert.True(t, res.Truncated)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, int64(first.EncodedSize()), info.Size())

		res, err = Scan(path)
		require.NoError(t, err)
		assert.False(t, res.Damaged)
	})
}
