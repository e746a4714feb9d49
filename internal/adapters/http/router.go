package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
)

type Router struct {
	ingestor  ports.DocumentIngestor
	queries   ports.QueryService
	documents ports.DocumentRepository
	history   ports.QueryStore

	logger         *slog.Logger
	metricsHandler http.Handler
	traffic        TrafficConfig
}

type RouterConfig struct {
	Ingestor  ports.DocumentIngestor
	Queries   ports.QueryService
	Documents ports.DocumentRepository
	History   ports.QueryStore

	Logger         *slog.Logger
	MetricsHandler http.Handler
	Traffic        TrafficConfig
}

func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		ingestor:       cfg.Ingestor,
		queries:        cfg.Queries,
		documents:      cfg.Documents,
		history:        cfg.History,
		logger:         cfg.Logger,
		metricsHandler: cfg.MetricsHandler,
		traffic:        cfg.Traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documentsCollection)
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	mux.HandleFunc("/v1/query", rt.runQuery)
	mux.HandleFunc("/v1/queries", rt.queryHistory)
	mux.HandleFunc("/v1/queries/", rt.queryByID)
	mux.HandleFunc("/v1/domains", rt.listDomains)
	if rt.metricsHandler != nil {
		mux.Handle("/metrics", rt.metricsHandler)
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	handler = backpressureMiddleware(handler, rt.traffic.MaxInFlight, rt.traffic.InFlightWait)
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	dom, err := parseDomainParam(r.URL.Query().Get("domain"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit, offset := parsePagination(r)

	docs, total, err := rt.documents.List(r.Context(), dom, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
	})
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := rt.documents.GetByID(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := rt.ingestor.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "document_id": id})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) runQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Query      string `json:"query"`
		DocumentID string `json:"document_id"`
		Domain     string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	dom, err := parseDomainParam(req.Domain)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	outcome, err := rt.queries.Process(r.Context(), req.Query, req.DocumentID, dom)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) queryHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dom, err := parseDomainParam(r.URL.Query().Get("domain"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	limit, offset := parsePagination(r)

	records, total, err := rt.history.List(r.Context(), r.URL.Query().Get("document_id"), dom, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []domain.QueryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queries": records,
		"total":   total,
	})
}

func (rt *Router) queryByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/queries/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "query id is required")
		return
	}

	record, err := rt.history.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) listDomains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": domain.AllDomains})
}

func parseDomainParam(raw string) (domain.Domain, error) {
	return domain.ParseDomain(raw)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
