package compliance

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/leadflow/pkg/logging"
)

// Handler exposes the audit trail to admins.
type Handler struct {
	audit  *AuditService
	logger *logging.Logger
}

func NewHandler(audit *AuditService, logger *logging.Logger) *Handler {
	if audit == nil {
		panic("compliance: audit service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{audit: audit, logger: logger}
}

// ListEvents handles GET /admin/audit?session_id=&type=&since=&limit=.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := AuditFilter{
		SessionID: q.Get("session_id"),
		EventType: AuditEventType(q.Get("type")),
		Limit:     100,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = min(n, 500)
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid since, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.StartTime = since
	}

	events, err := h.audit.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("compliance: list audit events failed", "error", err)
		http.Error(w, "failed to load audit events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []AuditEvent{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"events": events})
}
