// Package backup implements the ".mtj" bundle format of spec §6: a zip
// holding the immutable source archive, an optional replacement cover, and
// the project/segment records as JSON, with legacy-format tolerance on
// restore. Grounded on this codebase's existing atomic-JSON-file
// persistence idiom (internal/store), adapted from a single file on disk
// to a multi-entry zip bundle the way the Reassembler's archive writer
// already repackages a zip from in-memory entries.
package backup

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

const bundleVersion = 1

// projectEnvelope is project.json's current (non-legacy) shape.
type projectEnvelope struct {
	Version     int          `json:"version"`
	Timestamp   int64        `json:"timestamp"`
	ProjectData model.Project `json:"projectData"`
}

// Create builds a .mtj bundle from the current project and segment set.
// The project's own blob fields are nulled in project.json so the JSON
// stays small and diff-able. ArchiveBytes and CustomCover travel in the
// bundle as separate entries instead; CoverBytes is not stored anywhere in
// the bundle, so Restore returns it empty.
func Create(project model.Project, segments []model.Segment) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeEntry(zw, "source.epub", project.ArchiveBytes); err != nil {
		return nil, err
	}
	if project.CustomCover != nil {
		if err := writeEntry(zw, "custom-cover.bin", project.CustomCover); err != nil {
			return nil, err
		}
	}

	stripped := project
	stripped.ArchiveBytes = nil
	stripped.CoverBytes = nil
	stripped.CustomCover = nil

	envelope := projectEnvelope{
		Version:     bundleVersion,
		Timestamp:   time.Now().UnixMilli(),
		ProjectData: stripped,
	}
	projectJSON, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeEntry(zw, "project.json", projectJSON); err != nil {
		return nil, err
	}

	segmentsJSON, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeEntry(zw, "segments.json", segmentsJSON); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Restore parses a .mtj bundle back into a project and its segments,
// recomputing the translated count from segment statuses rather than
// trusting whatever the bundle's projectData carried (spec §6).
func Restore(raw []byte) (model.Project, []model.Segment, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return model.Project{}, nil, err
	}

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return model.Project{}, nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return model.Project{}, nil, err
		}
		entries[f.Name] = data
	}

	sourceEpub, ok := entries["source.epub"]
	if !ok {
		return model.Project{}, nil, ErrMissingSourceEPUB
	}
	projectRaw, ok := entries["project.json"]
	if !ok {
		return model.Project{}, nil, ErrMissingProjectJSON
	}
	segmentsRaw, ok := entries["segments.json"]
	if !ok {
		return model.Project{}, nil, ErrMissingSegmentsJSON
	}

	project, err := parseProjectJSON(projectRaw)
	if err != nil {
		return model.Project{}, nil, err
	}

	var segments []model.Segment
	if err := json.Unmarshal(segmentsRaw, &segments); err != nil {
		return model.Project{}, nil, err
	}

	project.ArchiveBytes = sourceEpub
	if cover, ok := entries["custom-cover.bin"]; ok {
		project.CustomCover = cover
	}

	translated := 0
	for _, seg := range segments {
		if seg.Status == model.StatusTranslated {
			translated++
		}
	}
	project.Translated = translated
	project.TotalSegments = len(segments)

	return project, segments, nil
}

// parseProjectJSON tolerates a legacy bundle whose project.json is the
// project object directly, with no { version, timestamp, projectData }
// wrapper (spec §6).
func parseProjectJSON(raw []byte) (model.Project, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return model.Project{}, err
	}

	if _, wrapped := probe["projectData"]; wrapped {
		var envelope projectEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return model.Project{}, err
		}
		return envelope.ProjectData, nil
	}

	var legacy model.Project
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return model.Project{}, err
	}
	return legacy, nil
}
