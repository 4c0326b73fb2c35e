package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/epub-translate/internal/config"
	"github.com/nerdneilsfield/epub-translate/internal/epub"
	"github.com/nerdneilsfield/epub-translate/internal/logger"
	"github.com/nerdneilsfield/epub-translate/internal/model"
	"github.com/nerdneilsfield/epub-translate/internal/scheduler"
	"github.com/nerdneilsfield/epub-translate/internal/store"
)

// noopTranslator satisfies scheduler.Translator without a network call,
// echoing the markup back unchanged, so tests that start the scheduler run
// every segment to TRANSLATED offline.
type noopTranslator struct{}

func (noopTranslator) Translate(_ context.Context, markup string) (string, error) {
	return markup, nil
}

func buildSampleEPUB(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0"?>
<container><rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles></container>`,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Sample Book</dc:title>
    <dc:creator>Jane Author</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="chap1" href="chap1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="chap1"/>
  </spine>
</package>`,
		"OEBPS/chap1.xhtml": `<html><head></head><body><p>Hello world.</p><hr/><p>Second paragraph.</p></body></html>`,
	}
	for _, name := range []string{"mimetype", "META-INF/container.xml", "OEBPS/content.opf", "OEBPS/chap1.xhtml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// newTestEngine builds an Engine around a temp-dir store and a real
// scheduler driving noopTranslator instead of a translator client, for
// tests that exercise import/backup/export/subscribe logic without needing
// network access.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return &Engine{
		cfg:    config.Default(),
		logger: zap.NewNop(),
		ring:   logger.NewRing(200),
		store:  st,
		sched:  scheduler.New(st, noopTranslator{}, zap.NewNop(), 2, 3),
	}
}

func TestImportProject_SegmentsEveryContentDocumentAndResetsCounters(t *testing.T) {
	e := newTestEngine(t)

	project, err := e.ImportProject(context.Background(), buildSampleEPUB(t))
	require.NoError(t, err)

	assert.Equal(t, "Sample Book", project.Title)
	assert.Equal(t, "Jane Author", project.Author)
	assert.Equal(t, 2, project.TotalSegments)
	assert.Equal(t, 0, project.Translated)
	assert.Equal(t, model.SchemaV2, project.SchemaVersion)

	segments := e.store.Segments()
	require.Len(t, segments, 2)
	assert.Equal(t, model.StatusPending, segments[0].Status)
	assert.Equal(t, "OEBPS/chap1.xhtml", segments[0].DocPath)
}

func TestImportProject_StateIsAnalyzingOnlyWhileRunning(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, model.StateIdle, e.State())

	_, err := e.ImportProject(context.Background(), buildSampleEPUB(t))
	require.NoError(t, err)

	assert.Equal(t, model.StateIdle, e.State())
}

func TestImportProject_AfterACompletedProjectAllowsStartingTheNewOne(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ImportProject(context.Background(), buildSampleEPUB(t))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	e.sched.Wait()
	require.Equal(t, model.StateCompleted, e.State())

	_, err = e.ImportProject(context.Background(), buildSampleEPUB(t))
	require.NoError(t, err)
	assert.Equal(t, model.StateIdle, e.State())

	require.NoError(t, e.Start(context.Background()))
	e.sched.Wait()
	assert.Equal(t, model.StateCompleted, e.State())
}

func TestBackupExport_RoundTripsThroughStoreAndProducesTranslatedArchive(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ImportProject(context.Background(), buildSampleEPUB(t))
	require.NoError(t, err)

	segments := e.store.Segments()
	require.NoError(t, e.store.CompleteSegment(segments[0].ID, "<p>مرحبا بالعالم.</p>"))

	bundle, err := e.Backup()
	require.NoError(t, err)

	total, translated, _ := e.Stats()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, translated)

	require.NoError(t, e.Restore(context.Background(), bundle))
	restoredTotal, restoredTranslated, _ := e.Stats()
	assert.Equal(t, total, restoredTotal)
	assert.Equal(t, translated, restoredTranslated)

	archive, err := e.Export(context.Background())
	require.NoError(t, err)

	arc, err := epub.Open(archive)
	require.NoError(t, err)
	assert.Equal(t, "application/epub+zip", string(arc.Files["mimetype"]))
	assert.Contains(t, string(arc.Files["OEBPS/chap1.xhtml"]), "مرحبا بالعالم.")
}

func TestSubscribeToProjectStats_ObservesCompletionWithoutPolling(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ImportProject(context.Background(), buildSampleEPUB(t))
	require.NoError(t, err)

	sub := e.SubscribeToProjectStats()
	defer sub.Close()

	initial := <-sub.C()
	assert.Equal(t, 0, initial.Translated)

	segments := e.store.Segments()
	require.NoError(t, e.store.CompleteSegment(segments[0].ID, "<p>x</p>"))

	updated := <-sub.C()
	assert.Equal(t, 1, updated.Translated)
}

func TestState_OverlaysAnalyzingOnTopOfSchedulerIdleState(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, model.StateIdle, e.State())

	e.analyzing.Store(true)
	assert.Equal(t, model.StateAnalyzing, e.State())

	e.analyzing.Store(false)
	assert.Equal(t, model.StateIdle, e.State())
}

func TestSubscribeToEngineState_FirstReceiveReturnsCurrentState(t *testing.T) {
	e := newTestEngine(t)
	sub := e.SubscribeToEngineState()
	defer sub.Close()

	first := <-sub.C()
	assert.Equal(t, model.StateIdle, first)
}
