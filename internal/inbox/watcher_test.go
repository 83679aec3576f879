package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dienstplan/internal/ocr"
	"dienstplan/internal/pipeline"
)

// fakeRecognizer maps image bytes to canned OCR text.
type fakeRecognizer struct {
	texts map[string]string
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, image []byte, _ string, _ ocr.ProgressFunc) (ocr.Result, error) {
	f.calls++
	text, ok := f.texts[string(image)]
	if !ok {
		return ocr.Result{}, ocr.ErrRecognition
	}
	return ocr.Result{Text: text}, nil
}

func newWatcher(t *testing.T, rec ocr.Recognizer) (*Watcher, string, string) {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "ics")
	p := pipeline.New(rec, pipeline.Options{
		Now: func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) },
	})
	return New(dir, out, "*/5 * * * *", p), dir, out
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestScanOnceConvertsImages(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{
		"plan":  "11 17:45 - 22:15\nDo. Kasse",
		"blank": "nur Rauschen",
	}}
	w, dir, out := newWatcher(t, rec)

	write(t, filepath.Join(dir, "februar.PNG"), "plan")
	write(t, filepath.Join(dir, "leer.jpg"), "blank")
	write(t, filepath.Join(dir, "kaputt.png"), "???")
	write(t, filepath.Join(dir, "notes.txt"), "plan")

	rep, err := w.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"februar.PNG"}, rep.Converted)
	assert.Equal(t, []string{"leer.jpg"}, rep.Skipped)
	require.Contains(t, rep.Failed, "kaputt.png")
	assert.True(t, errors.Is(rep.Failed["kaputt.png"], ocr.ErrRecognition))
	assert.Equal(t, 3, rec.calls)

	body, err := os.ReadFile(filepath.Join(out, "februar.ics"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "DTSTART:20260211T174500\r\n")
	assert.Contains(t, string(body), "SUMMARY:Kasse\r\n")

	_, err = os.Stat(filepath.Join(out, "leer.ics"))
	assert.True(t, os.IsNotExist(err))
}

func TestScanOnceSkipsConvertedImages(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{"plan": "11 17:45 - 22:15\nDo. Kasse"}}
	w, dir, _ := newWatcher(t, rec)
	write(t, filepath.Join(dir, "a.png"), "plan")

	_, err := w.ScanOnce(context.Background())
	require.NoError(t, err)
	rep, err := w.ScanOnce(context.Background())
	require.NoError(t, err)

	assert.Empty(t, rep.Converted)
	assert.Equal(t, 1, rec.calls)
}

func TestScanOnceMissingDir(t *testing.T) {
	p := pipeline.New(&fakeRecognizer{}, pipeline.Options{})
	w := New(filepath.Join(t.TempDir(), "missing"), "", "*/5 * * * *", p)

	_, err := w.ScanOnce(context.Background())
	assert.Error(t, err)
}

func TestScanOnceCanceled(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{"plan": "11 17:45 - 22:15\nDo. Kasse"}}
	w, dir, _ := newWatcher(t, rec)
	write(t, filepath.Join(dir, "a.png"), "plan")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.ScanOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rec.calls)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	p := pipeline.New(&fakeRecognizer{}, pipeline.Options{})
	w := New(t.TempDir(), "", "every now and then", p)

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid schedule"))
}

func TestStartScansAndStops(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{"plan": "11 17:45 - 22:15\nDo. Kasse"}}
	w, dir, out := newWatcher(t, rec)
	write(t, filepath.Join(dir, "a.png"), "plan")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	w.Stop()

	_, err := os.Stat(filepath.Join(out, "a.ics"))
	assert.NoError(t, err)
}
