package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.JPEG", "c.Jpg", "d.png", "e.txt", "f.jpeg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755))

	files, err := ListImages(dir)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a.jpg", "b.JPEG", "c.Jpg", "f.jpeg"}, files)
}

func TestListImagesMissingDir(t *testing.T) {
	_, err := ListImages(filepath.Join(t.TempDir(), "不存在"))
	require.Error(t, err)
}

func TestListImagesEmptyDir(t *testing.T) {
	files, err := ListImages(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, files)
}
