package epub

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// utf16LEBytes encodes an ASCII string as UTF-16LE with a byte-order mark,
// enough to exercise charset.DetermineEncoding's BOM-sniffing path without
// a dedicated UTF-16 encoding library.
func utf16LEBytes(s string) []byte {
	out := []byte{0xFF, 0xFE}
	for _, r := range s {
		out = append(out, byte(r), 0x00)
	}
	return out
}

const sampleContainer = `<?xml version="1.0"?>
<container><rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles></container>`

const sampleOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Sample Book</dc:title>
    <dc:creator>Jane Author</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="cover-image" href="cover.jpg" media-type="image/jpeg" properties="cover-image"/>
    <item id="chap1" href="chap1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="chap1"/>
  </spine>
</package>`

const sampleChapter = `<html><head></head><body><p>Hello world.</p></body></html>`

func fullSampleFiles() map[string]string {
	return map[string]string{
		"mimetype":              "application/epub+zip",
		"META-INF/container.xml": sampleContainer,
		"OEBPS/content.opf":     sampleOPF,
		"OEBPS/chap1.xhtml":     sampleChapter,
		"OEBPS/cover.jpg":       "not-a-real-jpeg",
	}
}

func TestOpen_RejectsNonZipBytes(t *testing.T) {
	_, err := Open([]byte("not a zip file"))
	assert.Error(t, err)
}

func TestOpen_ExtractsEveryEntryPreservingOrder(t *testing.T) {
	raw := buildZip(t, fullSampleFiles())
	arc, err := Open(raw)
	require.NoError(t, err)

	assert.Len(t, arc.Files, 5)
	assert.Equal(t, "application/epub+zip", string(arc.Files["mimetype"]))
	assert.Len(t, arc.Order, 5)
}

func TestRead_ExtractsTitleAuthorCoverAndContentDocs(t *testing.T) {
	raw := buildZip(t, fullSampleFiles())
	result, err := Read(raw)
	require.NoError(t, err)

	assert.Equal(t, "Sample Book", result.Title)
	assert.Equal(t, "Jane Author", result.Author)
	assert.Equal(t, []byte("not-a-real-jpeg"), result.CoverBytes)
	assert.Equal(t, "OEBPS/cover.jpg", result.CoverItemArchivePath)
	assert.Equal(t, "OEBPS/content.opf", result.OPFPath)

	require.Len(t, result.ContentDocs, 1)
	assert.Equal(t, "chap1.xhtml", result.ContentDocs[0].SpinePath)
	assert.Equal(t, "OEBPS/chap1.xhtml", result.ContentDocs[0].ArchivePath)
}

func TestRead_MissingContainerXMLReturnsErrMissingContainer(t *testing.T) {
	files := fullSampleFiles()
	delete(files, "META-INF/container.xml")
	raw := buildZip(t, files)

	_, err := Read(raw)
	assert.ErrorIs(t, err, ErrMissingContainer)
}

func TestRead_ContainerReferencesMissingOPFReturnsErrMissingOPF(t *testing.T) {
	files := fullSampleFiles()
	delete(files, "OEBPS/content.opf")
	raw := buildZip(t, files)

	_, err := Read(raw)
	assert.ErrorIs(t, err, ErrMissingOPF)
}

func TestRead_MalformedOPFReturnsErrUnparsableOPF(t *testing.T) {
	files := fullSampleFiles()
	files["OEBPS/content.opf"] = `<?xml version="1.0"?><package><manifest>`
	raw := buildZip(t, files)

	_, err := Read(raw)
	assert.ErrorIs(t, err, ErrUnparsableOPF)
}

func TestRead_SpineWithNoResolvableItemsReturnsErrEmptySpine(t *testing.T) {
	files := fullSampleFiles()
	files["OEBPS/content.opf"] = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Sample Book</dc:title>
  </metadata>
  <manifest>
    <item id="chap1" href="chap1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="does-not-exist"/>
  </spine>
</package>`
	raw := buildZip(t, files)

	_, err := Read(raw)
	assert.ErrorIs(t, err, ErrEmptySpine)
}

func TestRead_NormalizesNonUTF8ContentDocumentToUTF8(t *testing.T) {
	files := fullSampleFiles()
	files["OEBPS/chap1.xhtml"] = string(utf16LEBytes(sampleChapter))
	raw := buildZip(t, files)

	result, err := Read(raw)
	require.NoError(t, err)

	assert.Equal(t, sampleChapter, string(result.Archive.Files["OEBPS/chap1.xhtml"]))
}
