package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/leadrelay/leadrelay/internal/dispatch"
	"github.com/leadrelay/leadrelay/internal/resolver"
)

// DispatchHandler exposes the dispatch operation over HTTP.
type DispatchHandler struct {
	service *dispatch.Service
	logger  *slog.Logger
}

// NewDispatchHandler creates a DispatchHandler.
func NewDispatchHandler(log *slog.Logger, service *dispatch.Service) *DispatchHandler {
	return &DispatchHandler{
		service: service,
		logger:  log.With(slog.String("handler", "dispatch")),
	}
}

// Register mounts POST /dispatch.
func (h *DispatchHandler) Register(e *echo.Echo) {
	e.POST("/dispatch", h.Dispatch)
}

type dispatchTarget struct {
	Handle       string `json:"handle,omitempty"`
	ID           string `json:"id,omitempty"`
	OriginChatID string `json:"origin_chat_id,omitempty"`
}

type dispatchPayload struct {
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
}

type dispatchRequest struct {
	AccountID string          `json:"account_id"`
	LeadID    string          `json:"lead_id,omitempty"`
	Target    dispatchTarget  `json:"target"`
	Payload   dispatchPayload `json:"payload"`
}

type dispatchResponse struct {
	Success bool   `json:"success"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// Dispatch resolves the target and delivers the payload. The HTTP status
// mirrors the outcome: 200 sent, 404 inaccessible target, 429 rate
// limited, 500 anything else.
func (h *DispatchHandler) Dispatch(c echo.Context) error {
	if h.service == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "dispatch service not configured")
	}
	var req dispatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.AccountID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "account_id is required")
	}
	if strings.TrimSpace(req.Target.Handle) == "" && strings.TrimSpace(req.Target.ID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target requires a handle or an id")
	}
	if strings.TrimSpace(req.Payload.Text) == "" && strings.TrimSpace(req.Payload.MediaURL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payload is empty")
	}

	res := h.service.Dispatch(c.Request().Context(), dispatch.Request{
		AccountID: req.AccountID,
		LeadID:    req.LeadID,
		Target: resolver.Descriptor{
			Handle:       req.Target.Handle,
			OpaqueID:     req.Target.ID,
			OriginChatID: req.Target.OriginChatID,
		},
		Payload: dispatch.Payload{
			Text:     req.Payload.Text,
			MediaURL: req.Payload.MediaURL,
		},
	})

	return c.JSON(res.Outcome.HTTPStatus(), dispatchResponse{
		Success: res.Outcome.Success(),
		Outcome: string(res.Outcome.Kind),
		Message: res.Outcome.Message,
	})
}
