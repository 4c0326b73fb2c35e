package epub

import (
	"archive/zip"
	"bytes"
)

// Write repackages an Archive into a fresh EPUB, preserving the original
// zip entry order (export idempotence, spec §8) and applying overrides for
// any path present in replacements.
func Write(arc *Archive, replacements map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range arc.Order {
		data := arc.Files[name]
		if override, ok := replacements[name]; ok {
			data = override
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
