package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	topictree "github.com/MegaGrindStone/go-topic-tree"
	"github.com/MegaGrindStone/go-topic-tree/llm"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// LLMFactory creates the LLM client used for one generation request.
type LLMFactory func(model string) (topictree.LLM, error)

// Options configures a Server.
type Options struct {
	NewLLM  LLMFactory
	Handler topictree.TreeHandler
	Metrics *Metrics
	// DefaultModel replaces topictree.DefaultModel for requests that do not name a model.
	DefaultModel   string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server serves the topic tree HTTP API.
type Server struct {
	newLLM         LLMFactory
	handler        topictree.TreeHandler
	metrics        *Metrics
	defaultModel   string
	allowedOrigins []string

	logger *slog.Logger
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type pingResponse struct {
	Status string `json:"status"`
}

type rootResponse struct {
	Message string            `json:"message"`
	APIDocs map[string]string `json:"API docs"`
}

const maxBodyBytes = 1 << 20

const (
	msgMissingAPIKey    = "OpenAI API Key nicht gefunden"
	msgMainTopicsFailed = "Fehler bei der Generierung der Hauptthemen"
	msgGenerationFailed = "Fehler bei der Generierung"
	msgInvalidBody      = "Ungültiger Request-Body"
	msgClientInitFailed = "Fehler bei der Initialisierung des Sprachmodells"
)

const rootMessage = "Hi there! The API Documentation is available in two formats: " +
	"Please take a look at the /docs endpoint (for the Swagger UI) - or - " +
	"take a look at the /redoc endpoint for an alternative documentation (by Redoc)."

//go:embed openapi.yaml
var openAPIDocument []byte

// New creates a Server.
func New(opts Options) *Server {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics("topictree")
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		newLLM:         opts.NewLLM,
		handler:        opts.Handler,
		metrics:        metrics,
		defaultModel:   opts.DefaultModel,
		allowedOrigins: origins,
		logger:         logger.With(slog.String("module", "server")),
	}
}

// Routes configures all routes and middleware.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)
	router.Use(s.metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Post("/generate-topic-tree", s.generateTopicTree)
	router.Get("/_ping", s.ping)
	router.Get("/", s.root)

	router.Get("/openapi.yaml", s.openAPI)
	router.Get("/docs", s.docsPage(swaggerPage))
	router.Get("/redoc", s.docsPage(redocPage))
	router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return router
}

func (s *Server) generateTopicTree(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := s.logger.With(slog.String("requestID", middleware.GetReqID(r.Context())))

	req := topictree.DefaultRequest()
	if s.defaultModel != "" {
		req.Model = s.defaultModel
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.observeGeneration(outcomeInvalid, start)
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{
			Detail: fmt.Sprintf("%s: %v", msgInvalidBody, err),
		})
		return
	}

	if err := req.Validate(); err != nil {
		s.metrics.observeGeneration(outcomeInvalid, start)
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: err.Error()})
		return
	}

	logger.Info("Generating topic tree", "theme", req.Theme, "model", req.Model,
		"mainTopics", req.NumMainTopics, "subtopics", req.NumSubtopics, "curriculumTopics", req.NumCurriculumTopics)

	client, err := s.newLLM(req.Model)
	if err != nil {
		s.metrics.observeGeneration(outcomeConfigError, start)
		if errors.Is(err, llm.ErrMissingAPIKey) {
			logger.Error("No API key configured")
			writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: msgMissingAPIKey})
			return
		}
		logger.Error("Failed to create LLM client", "error", err)
		writeJSON(w, http.StatusInternalServerError, detailResponse{
			Detail: fmt.Sprintf("%s: %v", msgClientInitFailed, err),
		})
		return
	}

	tree, err := topictree.Generate(r.Context(), req, s.handler, s.metrics.instrument(client, req.Model), logger)
	if err != nil {
		s.metrics.observeGeneration(outcomeFailed, start)
		logger.Error("Failed to generate topic tree", "error", err)

		detail := fmt.Sprintf("%s: %v", msgGenerationFailed, err)
		if errors.Is(err, topictree.ErrNoMainTopics) {
			detail = msgMainTopicsFailed
		}
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: detail})
		return
	}

	counts := topictree.Analyze(tree.Collection)
	s.metrics.failedBranches.Add(float64(counts.FailedBranches))
	s.metrics.observeGeneration(outcomeOK, start)

	logger.Info("Generated topic tree", "mainTopics", counts.MainTopics, "subtopics", counts.Subtopics,
		"curriculumTopics", counts.CurriculumTopics, "failedBranches", counts.FailedBranches,
		"duration", time.Since(start))

	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{Status: "ok"})
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: rootMessage,
		APIDocs: map[string]string{"swagger": "/docs", "redoc": "/redoc"},
	})
}

func (s *Server) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openAPIDocument)
}

func (s *Server) docsPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("Failed to encode response", "error", err)
	}
}

const swaggerPage = `<!DOCTYPE html>
<html>
<head>
  <title>Themenbaum Generator API</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>SwaggerUIBundle({url: "/openapi.yaml", dom_id: "#swagger-ui"});</script>
</body>
</html>
`

const redocPage = `<!DOCTYPE html>
<html>
<head>
  <title>Themenbaum Generator API</title>
</head>
<body>
  <redoc spec-url="/openapi.yaml"></redoc>
  <script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>
`
