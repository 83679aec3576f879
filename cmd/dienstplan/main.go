package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dienstplan/internal/config"
	"dienstplan/internal/ics"
	"dienstplan/internal/inbox"
	appLog "dienstplan/internal/log"
	"dienstplan/internal/ocr"
	"dienstplan/internal/pipeline"
	"dienstplan/internal/shifts"
	"dienstplan/internal/web"
)

const version = "0.1.0"

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitNoEvents  = 3
	exitOCRFailed = 4
)

type flagConfig struct {
	configPath string
	listen     string
	image      string
	text       string
	out        string
	check      string
	serve      bool
	watch      bool
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(exitError)
	}

	// CLI flags override config file values.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("dienstplan starting", "version", version)
	appLog.Debug("effective config",
		"listen", conf.Listen,
		"ocr_lang", conf.OCR.Lang,
		"ocr_fix", conf.Parser.OCRFix,
		"inbox_dir", conf.Inbox.Dir,
		"schedule", conf.Inbox.Schedule,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	rec := ocr.NewTesseract(ocr.Config{
		Tesseract:   conf.OCR.Tesseract,
		Lang:        conf.OCR.Lang,
		TessdataDir: conf.OCR.TessdataDir,
		PSM:         conf.OCR.PSM,
		OEM:         conf.OCR.OEM,
		Timeout:     time.Duration(conf.OCR.TimeoutSeconds) * time.Second,
	})
	p := pipeline.FromConfig(conf, rec)

	code := run(ctx, flags, conf, p, os.Stdin, os.Stdout)
	appLog.Info("dienstplan exiting", "code", code)
	os.Exit(code)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "dienstplan.yaml", "Path to config file (created with defaults if missing)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.image, "image", "", "Screenshot to recognize and convert")
	flag.StringVar(&cfg.text, "text", "", "OCR text file to convert without running OCR (\"-\" reads stdin)")
	flag.StringVar(&cfg.out, "out", "", "Output .ics path (defaults to calendar.file_name)")
	flag.StringVar(&cfg.check, "check", "", "Decode an .ics file and print its events")
	flag.BoolVar(&cfg.serve, "serve", false, "Run the HTTP API")
	flag.BoolVar(&cfg.watch, "watch", false, "Run the inbox watcher")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

// run dispatches on the selected mode and returns the process exit code.
func run(ctx context.Context, flags flagConfig, conf *config.Config, p *pipeline.Pipeline, stdin io.Reader, stdout io.Writer) int {
	switch {
	case flags.check != "":
		return runCheck(flags.check, stdout)
	case flags.text != "":
		raw, err := readText(flags.text, stdin)
		if err != nil {
			appLog.Error("failed to read text", err, "path", flags.text)
			return exitError
		}
		return report(p.ProcessText(raw), outPath(flags, conf), stdout)
	case flags.image != "":
		image, err := os.ReadFile(flags.image)
		if err != nil {
			appLog.Error("failed to read image", err, "path", flags.image)
			return exitError
		}
		res, err := p.Run(ctx, image, func(pr ocr.Progress) {
			appLog.Debug("ocr", "status", pr.Status, "percent", pipeline.Percent(pr.Value))
		})
		if err != nil {
			fmt.Fprintln(stdout, res.Status.Message())
			return exitOCRFailed
		}
		return report(res, outPath(flags, conf), stdout)
	case flags.serve || flags.watch:
		if err := serve(ctx, flags, conf, p); err != nil {
			appLog.Error("service stopped with error", err)
			return exitError
		}
		return exitOK
	default:
		flag.Usage()
		return exitUsage
	}
}

// report prints the preview and writes the calendar when events were found.
func report(res pipeline.Result, out string, stdout io.Writer) int {
	for _, ev := range res.Events {
		fmt.Fprintln(stdout, ev.PreviewLine())
	}
	fmt.Fprintln(stdout, shifts.Summary(len(res.Events)))

	if res.Status == pipeline.StatusNoEvents {
		fmt.Fprintln(stdout, res.Status.Message())
		return exitNoEvents
	}
	if err := ics.WriteFile(out, res.Calendar); err != nil {
		appLog.Error("failed to write calendar", err, "path", out)
		return exitError
	}
	fmt.Fprintln(stdout, res.Status.Message(), out)
	return exitOK
}

func runCheck(path string, stdout io.Writer) int {
	body, err := os.ReadFile(path)
	if err != nil {
		appLog.Error("failed to read calendar", err, "path", path)
		return exitError
	}
	entries, err := ics.Decode(body, time.Local)
	if err != nil {
		appLog.Error("failed to decode calendar", err, "path", path)
		return exitError
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "%s  (%s)\n", e.Event.PreviewLine(), e.UID)
	}
	fmt.Fprintln(stdout, shifts.Summary(len(entries)))
	if len(entries) == 0 {
		return exitNoEvents
	}
	return exitOK
}

func serve(ctx context.Context, flags flagConfig, conf *config.Config, p *pipeline.Pipeline) error {
	if flags.watch {
		if conf.Inbox.Dir == "" {
			return errors.New("inbox.dir is not configured")
		}
		w := inbox.New(conf.Inbox.Dir, conf.Inbox.OutDir, conf.Inbox.Schedule, p)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}
	if flags.serve {
		return web.StartServer(ctx, conf, p)
	}
	<-ctx.Done()
	return nil
}

func readText(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func outPath(flags flagConfig, conf *config.Config) string {
	if flags.out != "" {
		return flags.out
	}
	return conf.Calendar.FileName
}
