package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/societyhub/societyhub/internal/authz"
	"github.com/societyhub/societyhub/internal/platform/httpx"
)

// BroadcastEnqueuer queues a broadcast fan-out for background delivery.
type BroadcastEnqueuer interface {
	EnqueueNotifyDeliver(ctx context.Context, title, body string) error
}

// Handler wires HTTP endpoints for the notification inbox.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	feed       *Feed
	broadcasts BroadcastEnqueuer
	authz      authz.Middleware
	validator  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, feed *Feed, broadcasts BroadcastEnqueuer, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, feed: feed, broadcasts: broadcasts, authz: mw, validator: validator.New()}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/mine", h.mine)
	r.Get("/stream", h.stream)
	r.Post("/{id}/read", h.markRead)
	r.With(h.authz.Require(authz.PermSendNotifications)).Post("/broadcast", h.broadcast)
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	notifications, err := h.service.ListFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, notifications)
}

// stream pushes a server-sent event whenever the member's feed changes.
// The client re-fetches its inbox on each event.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := h.feed.Subscribe(r.Context(), userID, func() {
		_, _ = fmt.Fprint(w, "event: changed\ndata: {}\n\n")
		flusher.Flush()
	})
	if err != nil && !errors.Is(err, r.Context().Err()) {
		h.logger.Warn("notification stream closed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid notification id")
		return
	}
	if err := h.service.MarkRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("mark notification read", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type broadcastRequest struct {
	Title string `json:"title" validate:"required,min=3"`
	Body  string `json:"body" validate:"required"`
}

func (h *Handler) broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if h.broadcasts == nil {
		delivered, err := h.service.Broadcast(r.Context(), req.Title, req.Body)
		if err != nil {
			h.logger.Error("broadcast notifications", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]int{"delivered": delivered})
		return
	}
	if err := h.broadcasts.EnqueueNotifyDeliver(r.Context(), req.Title, req.Body); err != nil {
		h.logger.Error("enqueue broadcast", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
