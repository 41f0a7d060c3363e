// Package server exposes the text-to-deck pipeline over HTTP: a multipart
// generate endpoint that streams back a finished .pptx, a JSON-only plan
// preview, plus health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/xostack/deckgen"
	"github.com/xostack/deckgen/config"
	"github.com/xostack/deckgen/deck"
	"github.com/xostack/deckgen/plan"
	"github.com/xostack/deckgen/provider"
)

const mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// clientFactory matches deckgen.GetClient; tests substitute a stub.
type clientFactory func(providerName, modelOverride, apiKey string, cfg config.Config, debugMode bool) (deckgen.Client, error)

type Server struct {
	cfg       config.Config
	log       zerolog.Logger
	builder   *deck.Builder
	newClient clientFactory
	metrics   *metrics
	debug     bool
}

func New(cfg config.Config, log zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		log:       log,
		builder:   deck.NewBuilder(log),
		newClient: deckgen.GetClient,
		metrics:   newMetrics(),
		debug:     log.GetLevel() == zerolog.DebugLevel,
	}
}

// Handler returns the full route set wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/preview", s.handlePreview)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return s.middleware(mux)
}

// middleware applies the security headers to every response, tags each
// request with a UUID, and logs method/path/status/duration. Form fields and
// bodies are never logged; they can carry credentials.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		requestID := uuid.NewString()
		h.Set("X-Request-ID", requestID)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		s.metrics.requestsTotal.WithLabelValues(handlerLabel(r.URL.Path), strconv.Itoa(sw.status)).Inc()
		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// handlerLabel keeps the metrics label set bounded: unknown paths would
// otherwise mint a new label value per probe request.
func handlerLabel(path string) string {
	switch path {
	case "/generate", "/preview", "/healthz", "/metrics":
		return path
	default:
		return "other"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func jsonError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": msg})
}

func jsonOK(w http.ResponseWriter, payload map[string]interface{}) {
	payload["ok"] = true
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// planInput carries the common form fields of /generate and /preview.
type planInput struct {
	Text         string
	Guidance     string
	Provider     string
	Model        string
	APIKey       string
	IncludeNotes bool
}

func readPlanInput(r *http.Request) planInput {
	field := func(name string) string { return strings.TrimSpace(r.FormValue(name)) }
	notes := field("includeNotes")
	in := planInput{
		Text:         field("inputText"),
		Guidance:     field("guidance"),
		Provider:     field("provider"),
		Model:        field("model"),
		APIKey:       field("apiKey"),
		IncludeNotes: notes == "on" || notes == "true",
	}
	if in.Provider == "" {
		in.Provider = "openai"
	}
	return in
}

func (in planInput) validate() (int, string) {
	if in.Text == "" {
		return http.StatusBadRequest, "Input text is required."
	}
	if in.APIKey == "" {
		return http.StatusBadRequest, "API key is required for the selected provider."
	}
	return 0, ""
}

// planSlides performs the provider half of the pipeline: credential screen,
// client construction, plan generation.
func (s *Server) planSlides(ctx context.Context, in planInput) (plan.Plan, error) {
	name, ok := deckgen.CanonicalProvider(in.Provider)
	if !ok {
		return nil, provider.Errorf("", 0, "unsupported provider: %s", in.Provider)
	}
	if err := provider.ValidateKey(name, in.APIKey); err != nil {
		return nil, err
	}
	client, err := s.newClient(name, in.Model, in.APIKey, s.cfg, s.debug)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(s.cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	slides, err := plan.NewGenerator(client).Plan(ctx, plan.Request{
		Text:         in.Text,
		Guidance:     in.Guidance,
		IncludeNotes: in.IncludeNotes,
	})
	s.metrics.providerLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if pe, ok := provider.AsError(err); ok {
			label := pe.Provider
			if label == "" {
				label = name
			}
			s.metrics.providerErrors.WithLabelValues(label).Inc()
		}
		return nil, err
	}
	return slides, nil
}

// writePlanError maps a plan-stage failure to the wire: provider errors are
// the caller's problem (bad key, bad provider choice, provider outage) and
// return 400; anything else is an internal fault.
func writePlanError(w http.ResponseWriter, err error) {
	if _, ok := provider.AsError(err); ok {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("LLM provider error: %v", err))
		return
	}
	jsonError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get a slide plan from LLM: %v", err))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST required.")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "Upload rejected: body too large or not valid multipart form data.")
		return
	}
	in := readPlanInput(r)
	if code, msg := in.validate(); code != 0 {
		jsonError(w, code, msg)
		return
	}

	file, header, err := r.FormFile("templateFile")
	if err != nil || header.Filename == "" {
		jsonError(w, http.StatusBadRequest, "Please upload a .pptx or .potx template/presentation.")
		return
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pptx" && ext != ".potx" {
		jsonError(w, http.StatusBadRequest, "Only .pptx or .potx files are supported.")
		return
	}
	templateBytes, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Could not read the uploaded template.")
		return
	}

	slides, err := s.planSlides(r.Context(), in)
	if err != nil {
		writePlanError(w, err)
		return
	}

	out, report, err := s.builder.Build(templateBytes, slides)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to build PPTX: %v", err))
		return
	}
	for _, issue := range report.Issues {
		s.log.Warn().
			Int("slide", issue.SlideIndex).
			Str("stage", issue.Stage).
			Str("reason", issue.Reason).
			Msg("slide content skipped")
	}
	s.metrics.decksBuilt.Inc()

	name := fmt.Sprintf("text-to-pptx-%s.pptx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", mimePPTX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.Write(out)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST required.")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil && err != http.ErrNotMultipart {
		jsonError(w, http.StatusBadRequest, "Request rejected: body too large or malformed.")
		return
	}
	in := readPlanInput(r)
	if code, msg := in.validate(); code != 0 {
		jsonError(w, code, msg)
		return
	}

	slides, err := s.planSlides(r.Context(), in)
	if err != nil {
		writePlanError(w, err)
		return
	}
	jsonOK(w, map[string]interface{}{"slides": slides})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]interface{}{"status": "healthy"})
}
