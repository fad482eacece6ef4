package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mrwolf/mood-server/internal/companion"
	"github.com/mrwolf/mood-server/internal/config"
	"github.com/mrwolf/mood-server/internal/db"
	"github.com/mrwolf/mood-server/internal/journal"
	"github.com/mrwolf/mood-server/internal/llm"
	"github.com/mrwolf/mood-server/internal/logger"
	"github.com/mrwolf/mood-server/internal/models"
	"github.com/mrwolf/mood-server/internal/trends"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type Handlers struct {
	cfg       *config.Config
	journal   *journal.Service
	db        *db.DB
	ollama    *llm.Client
	companion *companion.Service
	log       *logger.Logger
}

// NewHandlers wires the handlers. database may be nil, in which case the
// audit endpoints report it as disabled. The chat endpoint is only served
// when the config names an Ollama server.
func NewHandlers(cfg *config.Config, svc *journal.Service, database *db.DB, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handlers{
		cfg:     cfg,
		journal: svc,
		db:      database,
		log:     log.Component("api"),
	}
	if cfg.ChatEnabled() {
		h.ollama = llm.NewClient(cfg.OllamaURL, cfg.OllamaModel)
		h.companion = companion.New(h.ollama, svc, log)
	}
	return h
}

// Root handles GET /
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.RootResponse{Message: "Backend is running!"})
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:   "ok",
		Store:    h.checkStore(),
		Database: h.checkDatabase(),
		Model:    h.checkModel(),
		Ollama:   h.checkOllama(r.Context()),
		Version:  Version,
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) checkOllama(ctx context.Context) string {
	if h.ollama == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.ollama.HealthCheck(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}

func (h *Handlers) checkStore() string {
	if h.journal.StoreExists() {
		return "ok"
	}
	return "empty"
}

func (h *Handlers) checkDatabase() string {
	if h.db == nil {
		return "disabled"
	}
	if err := h.db.Ping(); err != nil {
		return "unreachable"
	}
	return "ok"
}

func (h *Handlers) checkModel() string {
	if h.journal.Status().Trained {
		return "trained"
	}
	return "untrained"
}

// AddEntry handles POST /add_entry
func (h *Handlers) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req models.EntryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}

	result, err := h.journal.Submit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnknownMood):
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_MOOD")
		case errors.Is(err, journal.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error(), "MISSING_FIELD")
		default:
			h.log.Error("submission failed", "date", req.Date, "request_id", GetRequestID(r), "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save entry", "SUBMIT_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusOK, models.EntryResponse{
		Message:           "Entry saved",
		PredictedNextMood: result.PredictedNextMood,
	})
}

// PredictNextMood handles GET /predict_next_mood
func (h *Handlers) PredictNextMood(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	diary := q.Get("diary")
	if strings.TrimSpace(diary) == "" {
		writeError(w, http.StatusBadRequest, "diary is required", "MISSING_FIELD")
		return
	}

	var yesterday *models.Mood
	if raw := q.Get("yesterday_pred_mood"); strings.TrimSpace(raw) != "" {
		mood, err := models.ParseMood(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_MOOD")
			return
		}
		yesterday = &mood
	}

	predicted, err := h.journal.Predict(r.Context(), diary, yesterday)
	if err != nil {
		if errors.Is(err, journal.ErrNoEntries) {
			writeError(w, http.StatusNotFound, "No entries found", "NO_ENTRIES")
			return
		}
		h.log.Error("prediction failed", "request_id", GetRequestID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to predict mood", "PREDICT_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, models.PredictionResponse{PredictedNextMood: predicted})
}

// Entries handles GET /api/v1/entries
func (h *Handlers) Entries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.journal.History(r.Context())
	if err != nil {
		h.log.Error("loading history failed", "request_id", GetRequestID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load entries", "STORE_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, models.EntriesResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

// Trends handles GET /api/v1/trends
func (h *Handlers) Trends(w http.ResponseWriter, r *http.Request) {
	span := h.journal.Window()
	if raw := r.URL.Query().Get("span"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "span must be a non-negative integer", "INVALID_SPAN")
			return
		}
		span = n
	}

	entries, err := h.journal.History(r.Context())
	if err != nil {
		h.log.Error("loading history failed", "request_id", GetRequestID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load entries", "STORE_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, trends.Build(entries, span))
}

// Model handles GET /api/v1/model
func (h *Handlers) Model(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.journal.Status())
}

// TrainingRuns handles GET /api/v1/training-runs
func (h *Handlers) TrainingRuns(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, http.StatusServiceUnavailable, "audit database disabled", "DB_DISABLED")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500", "INVALID_LIMIT")
			return
		}
		limit = n
	}

	runs, err := h.db.GetTrainingRuns(limit)
	if err != nil {
		h.log.Error("loading training runs failed", "request_id", GetRequestID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "database error", "DB_ERROR")
		return
	}

	resp := models.TrainingRunsResponse{Runs: make([]models.TrainingRun, len(runs))}
	for i, run := range runs {
		resp.Runs[i] = models.TrainingRun{
			RunID:      run.RunID,
			HistoryLen: run.HistoryLen,
			Examples:   run.Examples,
			VocabSize:  run.VocabSize,
			Classes:    run.Classes,
			TrainedAt:  run.TrainedAt.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Chat handles POST /api/v1/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	if h.companion == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured", "CHAT_DISABLED")
		return
	}

	var req models.ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}

	reply, err := h.companion.Reply(r.Context(), req.Messages)
	if err != nil {
		if errors.Is(err, companion.ErrInvalidConversation) {
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_MESSAGES")
			return
		}
		h.log.Error("chat failed", "request_id", GetRequestID(r), "error", err)
		writeError(w, http.StatusBadGateway, "assistant unavailable", "LLM_UNAVAILABLE")
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Message: reply,
		Model:   h.ollama.Model(),
	})
}
