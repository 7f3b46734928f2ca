package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"quiz-starter-service/internal/app"
	"quiz-starter-service/internal/catalog"
	"quiz-starter-service/internal/domain"
	"quiz-starter-service/internal/report"
)

const leaderboardLimit = 10

// APIHandler serves the read-side endpoints: history export, the results
// dashboard, and history wipes.
type APIHandler struct {
	engine *app.Engine
	logger *zap.Logger
}

func NewAPIHandler(engine *app.Engine, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{engine: engine, logger: logger}
}

// ServeExport streams a user's history as CSV or JSON.
// GET /export?user=<id>&format=csv|json (json is the default).
func (h *APIHandler) ServeExport(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}
	records, err := h.engine.Ledger().ReadAll(r.Context(), userID)
	if err != nil {
		h.logger.Warn("history read failed", zap.String("user", userID), zap.Error(err))
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_history.csv", userID))
		if err := report.WriteCSV(w, records); err != nil {
			h.logger.Warn("csv export failed", zap.String("user", userID), zap.Error(err))
		}
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_history.json", userID))
		if err := report.WriteJSON(w, records); err != nil {
			h.logger.Warn("json export failed", zap.String("user", userID), zap.Error(err))
		}
	default:
		http.Error(w, "format must be csv or json", http.StatusBadRequest)
	}
}

type dashboardResponse struct {
	Stats       report.UserStats          `json:"stats"`
	Themes      []report.ThemeStat        `json:"themes"`
	Leaderboard []report.LeaderboardEntry `json:"leaderboard"`
}

// ServeDashboard aggregates one user's stats and theme breakdown alongside
// the cross-user leaderboard. GET /dashboard?user=<id>.
func (h *APIHandler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}
	ledger := h.engine.Ledger()

	records, err := ledger.ReadAll(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}

	users, err := ledger.Users(r.Context())
	if err != nil {
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	byUser := make(map[string][]domain.HistoryRecord, len(users))
	for _, user := range users {
		if user == userID {
			byUser[user] = records
			continue
		}
		userRecords, err := ledger.ReadAll(r.Context(), user)
		if err != nil {
			h.logger.Warn("leaderboard read failed", zap.String("user", user), zap.Error(err))
			continue
		}
		byUser[user] = userRecords
	}

	response := dashboardResponse{
		Stats:       report.StatsFor(records),
		Themes:      report.ThemeBreakdown(records),
		Leaderboard: report.Leaderboard(byUser, leaderboardLimit),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Debug("dashboard write failed", zap.Error(err))
	}
}

// TopicLister is implemented by catalogs that can enumerate their topics.
type TopicLister interface {
	Topics(ctx context.Context) ([]catalog.TopicInfo, error)
}

// TopicsHandler returns the catalog listing. Catalogs without a manifest get
// an empty list rather than an error.
func TopicsHandler(lister TopicLister, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var topics []catalog.TopicInfo
		if lister != nil {
			listed, err := lister.Topics(r.Context())
			if err != nil {
				logger.Debug("topic listing failed", zap.Error(err))
			} else {
				topics = listed
			}
		}
		if topics == nil {
			topics = []catalog.TopicInfo{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(topics)
	}
}

// ServeHistory returns a user's raw history records on GET and wipes the
// user's history plus in-progress snapshots on DELETE.
func (h *APIHandler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		records, err := h.engine.Ledger().ReadAll(r.Context(), userID)
		if err != nil {
			http.Error(w, "failed to read history", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := report.WriteJSON(w, records); err != nil {
			h.logger.Debug("history write failed", zap.Error(err))
		}
	case http.MethodDelete:
		if err := h.engine.Ledger().Clear(r.Context(), userID); err != nil {
			http.Error(w, "failed to clear history", http.StatusInternalServerError)
			return
		}
		if err := h.engine.Snapshots().ClearUser(r.Context(), userID); err != nil {
			http.Error(w, "failed to clear snapshots", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
