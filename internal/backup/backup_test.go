package backup

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/epub-translate/internal/model"
)

func sampleProject() model.Project {
	return model.Project{
		ID:            "proj-1",
		Title:         "Sample Book",
		Author:        "Jane Author",
		ArchiveBytes:  []byte("pretend-epub-bytes"),
		TotalSegments: 4,
		Translated:    2,
		SchemaVersion: model.SchemaV2,
		SourceLang:    "en",
		TargetLang:    "ar",
	}
}

func sampleSegments() []model.Segment {
	return []model.Segment{
		{ID: "doc::0", DocPath: "OEBPS/chap1.xhtml", BatchIndex: 0, OriginalHTML: "<p>A</p>", Translated: "<p>أ</p>", Status: model.StatusTranslated},
		{ID: "doc::1", DocPath: "OEBPS/chap1.xhtml", BatchIndex: 1, OriginalHTML: "<p>B</p>", Translated: "<p>ب</p>", Status: model.StatusTranslated},
		{ID: "doc::2", DocPath: "OEBPS/chap1.xhtml", BatchIndex: 2, OriginalHTML: "<p>C</p>", Status: model.StatusPending},
		{ID: "doc::3", DocPath: "OEBPS/chap1.xhtml", BatchIndex: 3, OriginalHTML: "<p>D</p>", Status: model.StatusPending},
	}
}

// Round trips a project that's 50% translated through Create/Restore,
// mirroring the import -> translate half -> backup -> wipe -> restore
// scenario (spec §8).
func TestCreateRestore_RoundTripPreservesProjectAndSegments(t *testing.T) {
	project := sampleProject()
	segments := sampleSegments()

	bundle, err := Create(project, segments)
	require.NoError(t, err)

	restoredProject, restoredSegments, err := Restore(bundle)
	require.NoError(t, err)

	assert.Equal(t, project.Title, restoredProject.Title)
	assert.Equal(t, project.Author, restoredProject.Author)
	assert.Equal(t, 4, restoredProject.TotalSegments)
	assert.Equal(t, 2, restoredProject.Translated)
	assert.Equal(t, project.ArchiveBytes, restoredProject.ArchiveBytes)
	require.Len(t, restoredSegments, 4)
	assert.Equal(t, "<p>أ</p>", restoredSegments[0].Translated)
	assert.Equal(t, model.StatusPending, restoredSegments[2].Status)
}

func TestCreateRestore_CustomCoverRoundTrips(t *testing.T) {
	project := sampleProject()
	project.CustomCover = []byte("replacement-cover-bytes")

	bundle, err := Create(project, sampleSegments())
	require.NoError(t, err)

	restored, _, err := Restore(bundle)
	require.NoError(t, err)
	assert.Equal(t, []byte("replacement-cover-bytes"), restored.CustomCover)
}

func TestCreateRestore_TranslatedCountIsRecomputedFromSegmentStatuses(t *testing.T) {
	project := sampleProject()
	project.Translated = 999 // stale counter on purpose

	bundle, err := Create(project, sampleSegments())
	require.NoError(t, err)

	restored, _, err := Restore(bundle)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Translated)
}

func TestCreate_ProjectJSONOmitsBlobFields(t *testing.T) {
	project := sampleProject()
	project.CustomCover = []byte("replacement-cover-bytes")
	project.CoverBytes = []byte("original-cover-bytes")

	bundle, err := Create(project, sampleSegments())
	require.NoError(t, err)

	entries := unzipToMap(t, bundle)
	var envelope projectEnvelope
	require.NoError(t, json.Unmarshal(entries["project.json"], &envelope))

	assert.Nil(t, envelope.ProjectData.ArchiveBytes)
	assert.Nil(t, envelope.ProjectData.CoverBytes)
	assert.Nil(t, envelope.ProjectData.CustomCover)
	assert.Equal(t, bundleVersion, envelope.Version)
	assert.NotZero(t, envelope.Timestamp)
}

func TestRestore_LegacyUnwrappedProjectJSONIsTolerated(t *testing.T) {
	legacy := sampleProject()
	legacy.ArchiveBytes = nil

	legacyJSON, err := json.Marshal(legacy)
	require.NoError(t, err)

	bundle := zipBundle(t, map[string][]byte{
		"source.epub":   []byte("pretend-epub-bytes"),
		"project.json":  legacyJSON,
		"segments.json": mustJSON(t, sampleSegments()),
	})

	restored, segments, err := Restore(bundle)
	require.NoError(t, err)
	assert.Equal(t, "Sample Book", restored.Title)
	require.Len(t, segments, 4)
}

func TestRestore_MissingSourceEPUBReturnsError(t *testing.T) {
	bundle := zipBundle(t, map[string][]byte{
		"project.json":  mustJSON(t, projectEnvelope{Version: bundleVersion, ProjectData: sampleProject()}),
		"segments.json": mustJSON(t, sampleSegments()),
	})

	_, _, err := Restore(bundle)
	assert.ErrorIs(t, err, ErrMissingSourceEPUB)
}

func TestRestore_MissingProjectJSONReturnsError(t *testing.T) {
	bundle := zipBundle(t, map[string][]byte{
		"source.epub":   []byte("pretend-epub-bytes"),
		"segments.json": mustJSON(t, sampleSegments()),
	})

	_, _, err := Restore(bundle)
	assert.ErrorIs(t, err, ErrMissingProjectJSON)
}

func TestRestore_MissingSegmentsJSONReturnsError(t *testing.T) {
	bundle := zipBundle(t, map[string][]byte{
		"source.epub":  []byte("pretend-epub-bytes"),
		"project.json": mustJSON(t, projectEnvelope{Version: bundleVersion, ProjectData: sampleProject()}),
	})

	_, _, err := Restore(bundle)
	assert.ErrorIs(t, err, ErrMissingSegmentsJSON)
}
