package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"dienstplan/internal/config"
	"dienstplan/internal/ics"
	appLog "dienstplan/internal/log"
	"dienstplan/internal/model"
	"dienstplan/internal/pipeline"
	"dienstplan/internal/shifts"
)

const (
	maxTextBytes  = 1 << 20
	maxImageBytes = 20 << 20
)

// Server exposes the conversion pipeline over HTTP.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	router   *mux.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, p *pipeline.Pipeline) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		router:   mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler with logging and optional auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestLogger(h)
}

// StartServer serves until ctx is canceled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, p).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/parse", s.handleParse).Methods(http.MethodPost)
	api.HandleFunc("/calendar", s.handleCalendar).Methods(http.MethodPost)
	api.HandleFunc("/ocr", s.handleOCR).Methods(http.MethodPost)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Dienstplan", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is a JSON-friendly view of an event. Times are local wall clock
// without zone.
type eventDTO struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
	Preview     string `json:"preview"`
}

// conversionResponse is the JSON response shape for /api/parse and /api/ocr.
type conversionResponse struct {
	Status   pipeline.Status `json:"status"`
	Message  string          `json:"message"`
	Summary  string          `json:"summary"`
	Text     string          `json:"text"`
	Events   []eventDTO      `json:"events"`
	Calendar string          `json:"calendar,omitempty"`
}

func toResponse(res pipeline.Result, withCalendar bool) conversionResponse {
	out := conversionResponse{
		Status:  res.Status,
		Message: res.Status.Message(),
		Summary: shifts.Summary(len(res.Events)),
		Text:    res.Text,
		Events:  toDTOs(res.Events),
	}
	if withCalendar && len(res.Events) > 0 {
		out.Calendar = res.Calendar
	}
	return out
}

func toDTOs(events []model.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, eventDTO{
			Title:       ev.Title,
			Start:       ev.Start.Format("2006-01-02T15:04:05"),
			End:         ev.End.Format("2006-01-02T15:04:05"),
			Description: ev.Description,
			Preview:     ev.PreviewLine(),
		})
	}
	return out
}

// handleParse parses OCR text from the request body.
//
// POST /api/parse   (body: plain text)
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	text, err := readBody(w, r, maxTextBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(s.pipeline.ProcessText(string(text)), true))
}

// handleCalendar parses OCR text and answers with the .ics download.
//
// POST /api/calendar   (body: plain text)
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	text, err := readBody(w, r, maxTextBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	res := s.pipeline.ProcessText(string(text))
	if len(res.Events) == 0 {
		writeError(w, http.StatusUnprocessableEntity, res.Status.Message())
		return
	}

	name := ics.DefaultFileName
	if s.cfg != nil && s.cfg.Calendar.FileName != "" {
		name = s.cfg.Calendar.FileName
	}
	w.Header().Set("Content-Type", ics.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Calendar)
}

// handleOCR runs the full pipeline on an uploaded image. The image is taken
// from the multipart field "image" or, for other content types, the raw body.
//
// POST /api/ocr
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.pipeline.Run(r.Context(), image, nil)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, toResponse(res, false))
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res, true))
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
}

// readImage takes the "image" field of a multipart form, or the raw body for
// any other content type.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			return nil, errors.New("invalid multipart body")
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			return nil, errors.New(`missing multipart field "image"`)
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
