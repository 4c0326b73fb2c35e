// Package epub opens an EPUB archive, resolves its package document and
// spine, and extracts project metadata and content documents (spec §4.1).
// Namespace variation on OPF metadata elements is tolerated by matching on
// an element's local name rather than decoding into namespace-fixed
// structs, since the archive's declared namespace prefix for Dublin Core
// metadata is not guaranteed.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// Archive is an EPUB held fully in memory: every zip entry keyed by its
// archive-relative path. The Reassembler repackages a new archive from the
// same representation.
type Archive struct {
	Files map[string][]byte // archive path -> raw bytes
	Order []string          // original zip entry order, preserved for export idempotence
}

// manifestItem is one <manifest><item> entry from the OPF.
type manifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// ReadResult is everything the Reader produces from one archive (spec §4.1).
type ReadResult struct {
	Archive     *Archive
	Title       string
	Author      string
	CoverBytes  []byte
	ContentDocs []model.ContentDocRef
	OPFPath     string
	CoverItemArchivePath string // resolved path of the cover manifest item, for later replacement
}

// Open unzips raw EPUB bytes into an in-memory Archive.
func Open(raw []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("epub: not a valid zip archive: %w", err)
	}

	arc := &Archive{Files: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("epub: opening %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("epub: reading %s: %w", f.Name, err)
		}
		arc.Files[f.Name] = data
		arc.Order = append(arc.Order, f.Name)
	}
	return arc, nil
}

// Read runs the full Reader algorithm of spec §4.1 over raw EPUB bytes.
func Read(raw []byte) (*ReadResult, error) {
	arc, err := Open(raw)
	if err != nil {
		return nil, err
	}

	opfPath, err := locateOPF(arc)
	if err != nil {
		return nil, err
	}
	opfBytes, ok := arc.Files[opfPath]
	if !ok {
		return nil, ErrMissingOPF
	}

	title, author, manifest, spineRefs, coverItem, err := parseOPF(opfBytes)
	if err != nil {
		return nil, err
	}

	opfDir := path.Dir(opfPath)

	var contentDocs []model.ContentDocRef
	for _, idref := range spineRefs {
		item, ok := manifest[idref]
		if !ok {
			continue
		}
		archivePath := resolveRelative(opfDir, item.Href)
		contentDocs = append(contentDocs, model.ContentDocRef{
			SpinePath:   item.Href,
			ArchivePath: archivePath,
		})
	}
	if len(contentDocs) == 0 {
		return nil, ErrEmptySpine
	}

	var coverBytes []byte
	var coverArchivePath string
	if coverItem != nil {
		coverArchivePath = resolveRelative(opfDir, coverItem.Href)
		coverBytes = arc.Files[coverArchivePath]
	}

	for _, doc := range contentDocs {
		normalized, err := normalizeToUTF8(arc.Files[doc.ArchivePath])
		if err != nil {
			return nil, fmt.Errorf("epub: decoding %s: %w", doc.ArchivePath, err)
		}
		arc.Files[doc.ArchivePath] = normalized
	}

	return &ReadResult{
		Archive:              arc,
		Title:                title,
		Author:               author,
		CoverBytes:           coverBytes,
		ContentDocs:          contentDocs,
		OPFPath:              opfPath,
		CoverItemArchivePath: coverArchivePath,
	}, nil
}

// normalizeToUTF8 transcodes a content document to UTF-8 if its declared or
// sniffed charset isn't already, so the segmenter and every downstream step
// can assume UTF-8 regardless of what a source publisher shipped. Content
// documents rarely declare a non-UTF-8 charset, but EPUB only requires
// well-formed XML, not a particular encoding.
func normalizeToUTF8(data []byte) ([]byte, error) {
	enc, name, _ := charset.DetermineEncoding(data, "application/xhtml+xml")
	if name == "utf-8" {
		return data, nil
	}
	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	// The UTF-16 decoders keep a leading byte-order mark as U+FEFF; drop it.
	return bytes.TrimPrefix(decoded, []byte("\xef\xbb\xbf")), nil
}

func resolveRelative(dir, href string) string {
	if dir == "." || dir == "" {
		return path.Clean(href)
	}
	return path.Clean(path.Join(dir, href))
}

// locateOPF reads META-INF/container.xml and returns the full-path
// attribute of the first rootfile element (spec §4.1 step 1).
func locateOPF(arc *Archive) (string, error) {
	data, ok := arc.Files["META-INF/container.xml"]
	if !ok {
		return "", ErrMissingContainer
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMissingContainer, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || localName(se.Name) != "rootfile" {
			continue
		}
		for _, attr := range se.Attr {
			if localName(attr.Name) == "full-path" {
				return attr.Value, nil
			}
		}
	}
	return "", ErrMissingContainer
}

// parseOPF walks the package document token-by-token, matching elements by
// local name so that any namespace prefixing (or none) for metadata and
// manifest/spine elements is tolerated.
func parseOPF(data []byte) (title, author string, manifest map[string]manifestItem, spineRefs []string, cover *manifestItem, err error) {
	manifest = make(map[string]manifestItem)

	dec := xml.NewDecoder(bytes.NewReader(data))
	var inMetadata bool
	var textBuf strings.Builder
	var capturingLocal string

	flushText := func() {
		switch capturingLocal {
		case "title":
			if title == "" {
				title = strings.TrimSpace(textBuf.String())
			}
		case "creator":
			if author == "" {
				author = strings.TrimSpace(textBuf.String())
			}
		}
		textBuf.Reset()
		capturingLocal = ""
	}

	for {
		tok, terr := dec.Token()
		if terr == io.EOF {
			break
		}
		if terr != nil {
			return "", "", nil, nil, nil, fmt.Errorf("%w: %v", ErrUnparsableOPF, terr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			switch name {
			case "metadata":
				inMetadata = true
			case "title", "creator":
				if inMetadata {
					capturingLocal = name
					textBuf.Reset()
				}
			case "item":
				item := manifestItem{}
				for _, a := range t.Attr {
					switch localName(a.Name) {
					case "id":
						item.ID = a.Value
					case "href":
						item.Href = a.Value
					case "media-type":
						item.MediaType = a.Value
					case "properties":
						item.Properties = a.Value
					}
				}
				manifest[item.ID] = item
				if isCoverItem(item) {
					c := item
					cover = &c
				}
			case "itemref":
				for _, a := range t.Attr {
					if localName(a.Name) == "idref" {
						spineRefs = append(spineRefs, a.Value)
					}
				}
			}
		case xml.CharData:
			if capturingLocal != "" {
				textBuf.Write(t)
			}
		case xml.EndElement:
			name := localName(t.Name)
			if name == "metadata" {
				inMetadata = false
			}
			if name == capturingLocal {
				flushText()
			}
		}
	}

	if len(manifest) == 0 || len(spineRefs) == 0 {
		return title, author, manifest, spineRefs, cover, fmt.Errorf("%w: empty manifest or spine", ErrUnparsableOPF)
	}
	return title, author, manifest, spineRefs, cover, nil
}

func isCoverItem(item manifestItem) bool {
	if strings.Contains(strings.ToLower(item.ID), "cover") {
		return true
	}
	for _, p := range strings.Fields(item.Properties) {
		if p == "cover-image" {
			return true
		}
	}
	return false
}

func localName(n xml.Name) string {
	if i := strings.IndexByte(n.Local, ':'); i >= 0 {
		return n.Local[i+1:]
	}
	return n.Local
}
