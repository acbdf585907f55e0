package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/societyhub/societyhub/internal/authz"
	"github.com/societyhub/societyhub/internal/platform/httpx"
)

// Handler wires HTTP endpoints for payment records.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
	authz  authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo *Repository, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, authz: mw}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.Require(authz.PermManagePayments)).Get("/", h.list)
	r.With(h.authz.Require(authz.PermViewPaymentHistory, authz.PermManagePayments)).Get("/mine", h.mine)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	payments, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	payments, err := h.repo.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("payment history", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}
