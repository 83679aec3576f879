package pipeline

import (
	"context"
	"math"
	"strings"
	"time"

	"dienstplan/internal/config"
	"dienstplan/internal/ics"
	appLog "dienstplan/internal/log"
	"dienstplan/internal/model"
	"dienstplan/internal/ocr"
	"dienstplan/internal/shifts"
)

// Status is the outcome of one conversion as shown to the user.
type Status string

const (
	StatusOK        Status = "ok"
	StatusNoEvents  Status = "no_events"
	StatusOCRFailed Status = "ocr_failed"
)

// Message returns the user-facing status line.
func (s Status) Message() string {
	switch s {
	case StatusOK:
		return "Termine erkannt ✅"
	case StatusNoEvents:
		return "Keine Termine erkannt (Text prüfen)."
	case StatusOCRFailed:
		return "OCR Fehler. (Tipp: anderes Bild / höherer Kontrast)"
	default:
		return string(s)
	}
}

// Result carries everything one conversion produced.
type Result struct {
	Text     string
	Events   []model.Event
	Calendar string
	Status   Status
}

// Pipeline chains OCR, shift parsing and calendar encoding.
type Pipeline struct {
	recognizer ocr.Recognizer
	lang       string
	parser     shifts.Parser
	encoder    *ics.Encoder
	now        func() time.Time
}

// Options configures a Pipeline. Zero values fall back to defaults.
type Options struct {
	Lang    string
	Parser  shifts.Parser
	Encoder *ics.Encoder
	Now     func() time.Time
}

func New(rec ocr.Recognizer, opts Options) *Pipeline {
	p := &Pipeline{
		recognizer: rec,
		lang:       opts.Lang,
		parser:     opts.Parser,
		encoder:    opts.Encoder,
		now:        opts.Now,
	}
	if p.lang == "" {
		p.lang = ocr.DefaultLanguage
	}
	if p.encoder == nil {
		p.encoder = &ics.Encoder{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.encoder.Now == nil {
		p.encoder.Now = p.now
	}
	return p
}

// FromConfig wires a Pipeline from application config. Parser traces go to
// the debug log.
func FromConfig(cfg *config.Config, rec ocr.Recognizer) *Pipeline {
	return New(rec, Options{
		Lang: cfg.OCR.Lang,
		Parser: shifts.Parser{
			Fix:          shifts.ParseOCRFix(cfg.Parser.OCRFix),
			DefaultTitle: cfg.Parser.DefaultTitle,
			Description:  cfg.Parser.Description,
			Observer:     appLog.Debug,
		},
		Encoder: &ics.Encoder{
			ProductID: cfg.Calendar.ProductID,
			UIDDomain: cfg.Calendar.UIDDomain,
		},
	})
}

// Run recognizes the image and converts its text. An OCR failure returns
// StatusOCRFailed together with the error; no text is available then.
func (p *Pipeline) Run(ctx context.Context, image []byte, progress ocr.ProgressFunc) (Result, error) {
	appLog.Info("ocr start", "bytes", len(image), "lang", p.lang)

	res, err := p.recognizer.Recognize(ctx, image, p.lang, func(pr ocr.Progress) {
		if pr.Status == ocr.StatusRecognizing {
			appLog.Debug("ocr progress", "percent", Percent(pr.Value))
		}
		if progress != nil {
			progress(pr)
		}
	})
	if len(res.Warnings) > 0 {
		appLog.Debug("ocr warnings", "count", len(res.Warnings), "warnings", strings.Join(res.Warnings, " | "))
	}
	if err != nil {
		appLog.Error("ocr failed", err, "lang", p.lang)
		return Result{Status: StatusOCRFailed}, err
	}

	appLog.Info("ocr done", "raw_len", len(res.Text), "duration_ms", res.Duration.Milliseconds())
	return p.ProcessText(res.Text), nil
}

// ProcessText parses already recognized text and encodes the calendar.
func (p *Pipeline) ProcessText(raw string) Result {
	text := strings.TrimSpace(raw)
	events := p.parser.Parse(text, p.now())

	out := Result{
		Text:     text,
		Events:   events,
		Calendar: p.encoder.Encode(events),
		Status:   StatusOK,
	}
	if len(events) == 0 {
		out.Status = StatusNoEvents
	}
	appLog.Info("conversion done", "events", len(events), "status", out.Status)
	return out
}

// Percent converts a progress fraction to a whole percentage in [0,100].
func Percent(v float64) int {
	p := int(math.Round(v * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
