package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutOpenDelete(t *testing.T) {
	root := t.TempDir()
	disk, err := NewDisk(root)
	require.NoError(t, err)

	n, err := disk.Put("quotations/1/terms.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	f, err := disk.Open("quotations/1/terms.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, disk.Delete("quotations/1/terms.txt"))
	_, err = os.Stat(filepath.Join(root, "quotations", "1", "terms.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, disk.Delete("quotations/1/terms.txt"))
}

func TestRejectsTraversal(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	_, err = disk.Put("../etc/passwd", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestPutThumbnail(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for x := 0; x < 800; x++ {
		img.Set(x, 10, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	require.NoError(t, disk.PutThumbnail("quotations/1/thumb.jpg", buf.Bytes()))

	f, err := disk.Open("quotations/1/thumb.jpg")
	require.NoError(t, err)
	defer f.Close()
	thumb, err := imaging.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, ThumbnailWidth, thumb.Bounds().Dx())
	assert.Equal(t, 100, thumb.Bounds().Dy())
}
