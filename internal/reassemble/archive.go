package reassemble

import (
	"sort"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/epub-translate/internal/epub"
	"github.com/nerdneilsfield/epub-translate/internal/model"
)

// ApplyArchive runs the full Reassembler (spec §4.5) over a project: every
// content document is re-walked and patched, the cover is swapped if a
// replacement was supplied, and the OPF's language/direction/title
// metadata is updated. The archive's original entry order is preserved
// (spec §8's export-idempotence property).
//
// The package document path and cover path are not duplicated onto
// Project — they're cheap to re-derive by re-running the Reader's
// algorithm over the project's own archive bytes, which is already the
// single source of truth the Reassembler reads from (spec §9).
func ApplyArchive(project model.Project, segments []model.Segment, logger *zap.Logger) ([]byte, error) {
	read, err := epub.Read(project.ArchiveBytes)
	if err != nil {
		return nil, err
	}

	byDoc := make(map[string][]model.Segment, len(read.ContentDocs))
	for _, seg := range segments {
		byDoc[seg.DocPath] = append(byDoc[seg.DocPath], seg)
	}

	opts := Options{
		Schema:      project.SchemaVersion,
		TargetLang:  project.TargetLang,
		Export:      project.ExportSettings,
		BudgetChars: 0, // ApplyContentDocument falls back to segment.DefaultBudgetChars
		Logger:      logger,
	}

	replacements := make(map[string][]byte)
	for _, doc := range read.ContentDocs {
		docSegments := byDoc[doc.ArchivePath]
		if len(docSegments) == 0 {
			continue
		}
		sort.Slice(docSegments, func(i, j int) bool { return docSegments[i].BatchIndex < docSegments[j].BatchIndex })

		markup, ok := read.Archive.Files[doc.ArchivePath]
		if !ok {
			continue
		}
		updated, err := ApplyContentDocument(string(markup), docSegments, opts)
		if err != nil {
			return nil, err
		}
		replacements[doc.ArchivePath] = []byte(updated)
	}

	if project.CustomCover != nil && read.CoverItemArchivePath != "" {
		replacements[read.CoverItemArchivePath] = project.CustomCover
	}

	if opfBytes, ok := read.Archive.Files[read.OPFPath]; ok {
		dir := DirectionFor(project.TargetLang)
		updatedOPF, err := UpdateOPF(opfBytes, project.TargetLang, dir, project.TranslatedTitle)
		if err != nil {
			return nil, err
		}
		replacements[read.OPFPath] = updatedOPF
	}

	return epub.Write(read.Archive, replacements)
}
