package fingerprint

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobonapp/tankobon/internal/testgen"
)

func TestFile(t *testing.T) {
	t.Parallel()

	dir := testgen.TempDir(t, "fingerprint-*")

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()

		path := testgen.WriteFile(t, dir, "a.cbz", []byte("same content"))

		fp1, err := File(path)
		require.NoError(t, err)
		fp2, err := File(path)
		require.NoError(t, err)
		assert.Equal(t, fp1, fp2)
	})

	t.Run("identical content in different files matches", func(t *testing.T) {
		t.Parallel()

		p1 := testgen.WriteFile(t, dir, "one.cbz", []byte("shared bytes"))
		p2 := testgen.WriteFile(t, dir, "two.cbz", []byte("shared bytes"))

		fp1, err := File(p1)
		require.NoError(t, err)
		fp2, err := File(p2)
		require.NoError(t, err)
		assert.Equal(t, fp1, fp2)
	})

	t.Run("different content differs", func(t *testing.T) {
		t.Parallel()

		p1 := testgen.WriteFile(t, dir, "x.cbz", []byte("content a"))
		p2 := testgen.WriteFile(t, dir, "y.cbz", []byte("content b"))

		fp1, err := File(p1)
		require.NoError(t, err)
		fp2, err := File(p2)
		require.NoError(t, err)
		assert.NotEqual(t, fp1, fp2)
	})

	t.Run("missing file errors", func(t *testing.T) {
		t.Parallel()

		_, err := File(dir + "/does-not-exist.cbz")
		require.Error(t, err)
	})
}

func TestReader(t *testing.T) {
	t.Parallel()

	t.Run("size disambiguates identical heads", func(t *testing.T) {
		t.Parallel()

		// Two inputs with the same first 512KiB but different tails must
		// still fingerprint differently.
		head := strings.Repeat("a", 512*1024)
		short := head + "x"
		long := head + "xyz"

		fp1, err := Reader(bytes.NewReader([]byte(short)), int64(len(short)))
		require.NoError(t, err)
		fp2, err := Reader(bytes.NewReader([]byte(long)), int64(len(long)))
		require.NoError(t, err)
		assert.NotEqual(t, fp1, fp2)
	})

	t.Run("empty input still fingerprints", func(t *testing.T) {
		t.Parallel()

		fp, err := Reader(bytes.NewReader(nil), 0)
		require.NoError(t, err)
		assert.NotEmpty(t, fp)
	})
}
