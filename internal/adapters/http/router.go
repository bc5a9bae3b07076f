package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/auditstack/docuquery/internal/core/domain"
	"github.com/auditstack/docuquery/internal/core/ports"
)

type Router struct {
	ingestor   ports.DocumentIngestor
	classifier ports.DocumentClassifier
	questions  ports.QuestionRunner
	status     ports.StatusReader
	docs       ports.DocumentRepository

	openapiHandler http.Handler
	triggerLimiter *rate.Limiter
	maxConcurrent  int
	overloadWait   time.Duration
}

type RouterConfig struct {
	// TriggerRPS and TriggerBurst bound the rate of POST trigger requests.
	// Zero RPS disables the limiter.
	TriggerRPS    float64
	TriggerBurst  int
	MaxConcurrent int
	OverloadWait  time.Duration
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	classifier ports.DocumentClassifier,
	questions ports.QuestionRunner,
	status ports.StatusReader,
	docs ports.DocumentRepository,
	cfg RouterConfig,
) (*Router, error) {
	openapiHandler, err := newOpenAPIHandler()
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.TriggerRPS > 0 {
		burst := cfg.TriggerBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.TriggerRPS), burst)
	}
	overloadWait := cfg.OverloadWait
	if overloadWait <= 0 {
		overloadWait = 100 * time.Millisecond
	}

	return &Router{
		ingestor:       ingestor,
		classifier:     classifier,
		questions:      questions,
		status:         status,
		docs:           docs,
		openapiHandler: openapiHandler,
		triggerLimiter: limiter,
		maxConcurrent:  cfg.MaxConcurrent,
		overloadWait:   overloadWait,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentSubresource)
	mux.Handle("/openapi.json", rt.openapiHandler)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.triggerLimiter)
	if rt.maxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.maxConcurrent, rt.overloadWait)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// documentSubresource dispatches /v1/documents/{id} and its nested resources.
func (rt *Router) documentSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		rt.getDocument(w, r, id)
	case sub == "status" && r.Method == http.MethodGet:
		rt.getStatus(w, r, id)
	case sub == "answers" && r.Method == http.MethodGet:
		rt.getAnswers(w, r, id)
	case sub == "queries" && r.Method == http.MethodGet:
		rt.getQueries(w, r, id)
	case sub == "classify" && r.Method == http.MethodPost:
		rt.triggerClassify(w, r, id)
	case sub == "questions" && r.Method == http.MethodPost:
		rt.triggerQuestions(w, r, id)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getStatus(w http.ResponseWriter, r *http.Request, id string) {
	view, err := rt.status.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) getAnswers(w http.ResponseWriter, r *http.Request, id string) {
	answers, err := rt.status.Answers(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (rt *Router) getQueries(w http.ResponseWriter, r *http.Request, id string) {
	history, err := rt.status.History(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if history == nil {
		history = []domain.Query{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": history})
}

func (rt *Router) triggerClassify(w http.ResponseWriter, r *http.Request, id string) {
	classifiedType, err := rt.classifier.Classify(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"classified_type": classifiedType})
}

func (rt *Router) triggerQuestions(w http.ResponseWriter, r *http.Request, id string) {
	attempted, failures, err := rt.questions.RunAll(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	failureList := make([]map[string]string, 0, len(failures))
	for _, failure := range failures {
		failureList = append(failureList, map[string]string{
			"identifier": failure.Identifier,
			"error":      failure.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempted": attempted,
		"failures":  failureList,
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
