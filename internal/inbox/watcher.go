// Package inbox converts schedule screenshots dropped into a directory into
// .ics files on a cron schedule.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"dienstplan/internal/ics"
	appLog "dienstplan/internal/log"
	"dienstplan/internal/pipeline"
)

// imageExts are the file extensions picked up from the inbox.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".webp": true,
}

// Report summarizes one scan.
type Report struct {
	Converted []string
	Skipped   []string
	Failed    map[string]error
}

// Watcher scans Dir and writes <name>.ics next to each new image in OutDir.
type Watcher struct {
	dir      string
	outDir   string
	schedule string
	pipeline *pipeline.Pipeline

	cron     *cron.Cron
	mu       sync.Mutex
	stopOnce sync.Once
}

// New creates a Watcher. outDir defaults to dir.
func New(dir, outDir, schedule string, p *pipeline.Pipeline) *Watcher {
	if outDir == "" {
		outDir = dir
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Watcher{
		dir:      dir,
		outDir:   outDir,
		schedule: schedule,
		pipeline: p,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// Start runs one scan immediately and then registers the scheduled scan.
// The watcher stops when ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		return errors.New("inbox: directory is empty")
	}
	if _, err := w.cron.AddFunc(w.schedule, func() { w.scan(ctx) }); err != nil {
		return fmt.Errorf("inbox: invalid schedule %q: %w", w.schedule, err)
	}

	w.scan(ctx)
	w.cron.Start()
	appLog.Info("inbox watcher started", "dir", w.dir, "out_dir", w.outDir, "schedule", w.schedule)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running scan. Safe to call more
// than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		<-w.cron.Stop().Done()
		appLog.Info("inbox watcher stopped", "dir", w.dir)
	})
}

func (w *Watcher) scan(ctx context.Context) {
	rep, err := w.ScanOnce(ctx)
	if err != nil {
		appLog.Error("inbox scan failed", err, "dir", w.dir)
		return
	}
	if len(rep.Converted) > 0 || len(rep.Failed) > 0 {
		appLog.Info("inbox scan done",
			"converted", len(rep.Converted),
			"skipped", len(rep.Skipped),
			"failed", len(rep.Failed),
		)
	}
}

// ScanOnce converts every image in the inbox that has no up-to-date .ics
// yet. Images whose text yields no events are recorded as skipped and no
// file is written for them.
func (w *Watcher) ScanOnce(ctx context.Context) (Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rep := Report{Failed: map[string]error{}}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return rep, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		src := filepath.Join(w.dir, name)
		dst := filepath.Join(w.outDir, strings.TrimSuffix(name, filepath.Ext(name))+".ics")
		if upToDate(src, dst) {
			continue
		}

		image, err := os.ReadFile(src)
		if err != nil {
			rep.Failed[name] = err
			continue
		}
		res, err := w.pipeline.Run(ctx, image, nil)
		if err != nil {
			rep.Failed[name] = err
			continue
		}
		if res.Status == pipeline.StatusNoEvents {
			appLog.Info("inbox image without events", "file", name)
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		if err := ics.WriteFile(dst, res.Calendar); err != nil {
			rep.Failed[name] = err
			continue
		}
		appLog.Info("inbox image converted", "file", name, "events", len(res.Events), "out", dst)
		rep.Converted = append(rep.Converted, name)
	}
	return rep, nil
}

// upToDate reports whether dst exists and is not older than src.
func upToDate(src, dst string) bool {
	di, err := os.Stat(dst)
	if err != nil {
		return false
	}
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	return !di.ModTime().Before(si.ModTime())
}
