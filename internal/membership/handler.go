package membership

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/societyhub/societyhub/internal/authz"
	"github.com/societyhub/societyhub/internal/platform/httpx"
)

// Handler wires HTTP endpoints for membership flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, validator: validator.New()}
}

// MountRoutes registers membership routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/mine", h.mine)
	r.Get("/history", h.history)
	r.Post("/apply", h.apply)
	r.Post("/{id}/renew", h.renew)

	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermApproveMemberships))
		r.Get("/pending", h.pending)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
}

type membershipView struct {
	Membership
	Display  StatusInfo `json:"display"`
	CanRenew bool       `json:"can_renew"`
}

func (h *Handler) view(m Membership) membershipView {
	return membershipView{
		Membership: m,
		Display:    StatusDisplay(m.Status),
		CanRenew:   m.EligibleForRenewal(h.service.now()),
	}
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	current, err := h.service.Current(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no membership on record")
			return
		}
		h.logger.Error("current membership", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(*current))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	memberships, err := h.service.HistoryFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("membership history", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]membershipView, 0, len(memberships))
	for _, m := range memberships {
		views = append(views, h.view(m))
	}
	httpx.JSON(w, http.StatusOK, views)
}

type applyRequest struct {
	Tier string `json:"tier" validate:"required,oneof=bronze silver gold"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req applyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Apply(r.Context(), userID, Tier(req.Tier))
	if err != nil {
		if errors.Is(err, ErrAlreadyOpen) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
			return
		}
		h.logger.Error("apply membership", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, h.view(*created))
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid membership id")
		return
	}
	renewed, err := h.service.Renew(r.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrNotOwner):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
		case errors.Is(err, ErrNotRenewable), errors.Is(err, ErrAlreadyOpen):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logger.Error("renew membership", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, h.view(*renewed))
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	queue, err := h.service.PendingQueue(r.Context())
	if err != nil {
		h.logger.Error("pending memberships", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]membershipView, 0, len(queue))
	for _, m := range queue {
		views = append(views, h.view(m))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid membership id")
		return
	}
	approved, err := h.service.Approve(r.Context(), actorID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("approve membership", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(*approved))
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid membership id")
		return
	}
	rejected, err := h.service.Reject(r.Context(), actorID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("reject membership", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(*rejected))
}
