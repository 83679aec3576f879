package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	appLog "dienstplan/internal/log"
)

const (
	DefaultLanguage = "deu"
	DefaultTimeout  = 2 * time.Minute
)

// Config controls the tesseract command line.
type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "deu"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default
	Timeout     time.Duration
}

// Tesseract recognizes text by running the tesseract CLI on a temp copy of
// the image.
type Tesseract struct {
	cfg    Config
	runner Runner
}

func NewTesseract(cfg Config) *Tesseract {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Tesseract{cfg: cfg, runner: commandRunner{}}
}

// WithRunner swaps the command runner; used by tests.
func (t *Tesseract) WithRunner(r Runner) *Tesseract {
	t.runner = r
	return t
}

// Recognize runs tesseract on image. lang overrides the configured language
// when non-empty. Any failure is wrapped in ErrRecognition.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, lang string, progress ProgressFunc) (Result, error) {
	start := time.Now()
	if lang == "" {
		lang = t.cfg.Lang
	}
	if len(image) == 0 {
		return Result{Language: lang}, fmt.Errorf("%w: empty image", ErrRecognition)
	}

	report(progress, StatusInitializing, 0)

	tmp, err := os.CreateTemp("", "dienstplan-ocr-*")
	if err != nil {
		return Result{Language: lang}, fmt.Errorf("%w: temp file: %v", ErrRecognition, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return Result{Language: lang}, fmt.Errorf("%w: temp file: %v", ErrRecognition, err)
	}
	if err := tmp.Close(); err != nil {
		return Result{Language: lang}, fmt.Errorf("%w: temp file: %v", ErrRecognition, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	report(progress, StatusRecognizing, 0)

	// tesseract <file> stdout -l <lang>
	args := []string{tmpName, "stdout", "-l", lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	res := Result{Language: lang, Duration: time.Since(start), Warnings: warnings(errb)}
	if err != nil {
		appLog.Error("tesseract failed", err,
			"bin", t.cfg.Tesseract,
			"lang", lang,
			"duration_ms", res.Duration.Milliseconds(),
			"warnings", len(res.Warnings),
		)
		return res, fmt.Errorf("%w: tesseract: %v", ErrRecognition, err)
	}

	report(progress, StatusRecognizing, 1)

	res.Text = string(out)
	appLog.Debug("tesseract done",
		"lang", lang,
		"bytes", len(res.Text),
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// maxWarnings caps how many stderr lines are kept per recognition.
const maxWarnings = 20

// warnings splits tesseract's stderr into non-empty lines. Only the last
// maxWarnings lines are kept; the failure reason is usually at the end.
func warnings(stderr []byte) []string {
	var out []string
	for _, l := range strings.Split(string(stderr), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) > maxWarnings {
		out = out[len(out)-maxWarnings:]
	}
	return out
}
