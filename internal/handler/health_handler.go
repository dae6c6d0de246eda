package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/labpractice/internal/middleware"
)

// データベース疎通確認のタイムアウト。
const healthPingTimeout = 2 * time.Second

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// ReadinessChecker はIdPの準備状態を返すインターフェース。
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	db       HealthChecker
	provider ReadinessChecker
}

// NewHealthHandler はHealthHandlerを生成する。providerはnilでもよい。
func NewHealthHandler(db HealthChecker, provider ReadinessChecker) *HealthHandler {
	return &HealthHandler{db: db, provider: provider}
}

type healthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database,omitempty"`
	IdentityProvider string `json:"identity_provider,omitempty"`
}

// Liveness はプロセスの生存のみを返す。
// GET /api/health
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Readiness はDB疎通を確認する。DBに到達できない場合は503を返す。
// IdPの準備状態は参考情報として返し、ステータスには影響させない。
// GET /health
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	if h.provider != nil {
		resp.IdentityProvider = "pending"
		if h.provider.Ready() {
			resp.IdentityProvider = "ready"
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		slog.Error("health check database ping failed", slog.String("error", err.Error()))
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		middleware.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}
