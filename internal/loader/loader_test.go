package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("paper.pdf"))
	assert.True(t, Supported("PAPER.PDF"))
	assert.True(t, Supported("notes.txt"))
	assert.True(t, Supported("notes.md"))
	assert.False(t, Supported("image.png"))
	assert.False(t, Supported("pdf"))
}

func TestListSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.pdf", "x")
	writeFile(t, dir, "a.txt", "x")
	writeFile(t, dir, "c.docx", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	names, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.pdf"}, names)
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "protein.md", "Protein needs rise with age.")
	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "protein.md", doc.Name)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 0, doc.Pages[0].Index)
	assert.Equal(t, "Protein needs rise with age.", doc.Pages[0].Text)
}

func TestLoadCorruptPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", "this is not a pdf")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestLoadUnsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.csv", "a,b")
	_, err := Load(path)
	assert.Error(t, err)
}
