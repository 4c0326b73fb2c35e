package reassemble

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// UpdateOPF rewrites the package document per spec §4.5's "OPF metadata
// update": the language element is set to targetLang (created under
// <metadata> if absent), the spine's page-progression-direction attribute
// is set to direction, and, if translatedTitle is non-empty, the metadata
// title's text is replaced with it.
//
// The rewrite is done by byte-offset splicing rather than by re-encoding
// through xml.Marshal, so every other byte of the document — comments,
// attribute order, namespace prefixes, whitespace — is left untouched.
func UpdateOPF(opfBytes []byte, targetLang, direction, translatedTitle string) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(opfBytes))

	var languageSpan, languageTextSpan, metadataOpenTagEnd, titleTextSpan, spineOpenTag *tokSpan
	var inMetadata bool
	var capturingLocal string
	var textStart int64

	prev := int64(0)
	for {
		before := prev
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reassemble: re-parsing OPF: %w", err)
		}
		after := dec.InputOffset()
		prev = after

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			switch name {
			case "metadata":
				inMetadata = true
				metadataOpenTagEnd = &tokSpan{start: before, end: after}
			case "language":
				if inMetadata {
					languageSpan = &tokSpan{start: before, end: after}
					capturingLocal = "language"
					textStart = after
				}
			case "title":
				if inMetadata {
					capturingLocal = "title"
					textStart = after
				}
			case "spine":
				spineOpenTag = &tokSpan{start: before, end: after}
			}
		case xml.EndElement:
			name := t.Name.Local
			if name == "metadata" {
				inMetadata = false
			}
			if name == capturingLocal {
				if name == "language" {
					languageTextSpan = &tokSpan{start: textStart, end: before}
				}
				if name == "title" {
					titleTextSpan = &tokSpan{start: textStart, end: before}
				}
				capturingLocal = ""
			}
		}
	}

	out := string(opfBytes)

	if translatedTitle != "" && titleTextSpan != nil {
		oldEnd := titleTextSpan.end
		delta := len(translatedTitle) - int(titleTextSpan.end-titleTextSpan.start)
		out = spliceSpan(out, *titleTextSpan, translatedTitle)
		shiftSpansAfter(oldEnd, delta, languageSpan, languageTextSpan, spineOpenTag)
	}

	if languageTextSpan != nil {
		oldEnd := languageTextSpan.end
		delta := len(targetLang) - int(languageTextSpan.end-languageTextSpan.start)
		out = spliceSpan(out, *languageTextSpan, targetLang)
		shiftSpansAfter(oldEnd, delta, spineOpenTag)
	} else if metadataOpenTagEnd != nil {
		insertion := fmt.Sprintf("<dc:language>%s</dc:language>", targetLang)
		out = out[:metadataOpenTagEnd.end] + insertion + out[metadataOpenTagEnd.end:]
		shiftSpansAfter(metadataOpenTagEnd.end, len(insertion), spineOpenTag)
	}

	if spineOpenTag != nil {
		tag := out[spineOpenTag.start:spineOpenTag.end]
		newTag := setXMLAttr(tag, "page-progression-direction", direction)
		out = out[:spineOpenTag.start] + newTag + out[spineOpenTag.end:]
	}

	return []byte(out), nil
}

type tokSpan struct{ start, end int64 }

func spliceSpan(s string, sp tokSpan, replacement string) string {
	return s[:sp.start] + replacement + s[sp.end:]
}

// shiftSpansAfter adjusts every span that starts at or after afterOffset by
// delta bytes, so a splice earlier in the document doesn't invalidate the
// offsets of spans recorded later in the same document.
func shiftSpansAfter(afterOffset int64, delta int, spans ...*tokSpan) {
	for _, sp := range spans {
		if sp == nil || sp.start < afterOffset {
			continue
		}
		sp.start += int64(delta)
		sp.end += int64(delta)
	}
}

// setXMLAttr sets (or appends) an attribute on a raw "<tag ...>" string.
func setXMLAttr(tag, key, val string) string {
	needle := key + "=\""
	if idx := strings.Index(tag, needle); idx >= 0 {
		rest := tag[idx+len(needle):]
		end := strings.IndexByte(rest, '"')
		if end >= 0 {
			return tag[:idx+len(needle)] + val + rest[end:]
		}
	}
	closeIdx := strings.LastIndex(tag, "/>")
	selfClosing := closeIdx >= 0 && closeIdx == len(tag)-2
	if selfClosing {
		return tag[:closeIdx] + fmt.Sprintf(" %s=%q", key, val) + "/>"
	}
	closeIdx = strings.LastIndex(tag, ">")
	return tag[:closeIdx] + fmt.Sprintf(" %s=%q", key, val) + tag[closeIdx:]
}
