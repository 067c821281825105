package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/render"
	"github.com/wonny/fibivi/internal/transform"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/logger"
)

// ViewRequest is an upload from the page's file picker
type ViewRequest struct {
	Contents     string `json:"contents"` // "<metadata>,<base64>"
	RandomColors bool   `json:"randomColors"`
}

// ErrUnknownView is returned for a view name that is not configured
var ErrUnknownView = errors.New("unknown view")

// ErrNoContents means nothing was uploaded; the page keeps its current figure
var ErrNoContents = errors.New("no contents")

// ViewHandler turns uploads into figures
// ⭐ SSOT: 업로드 → Figure 변환 API는 이 구조체에서만
type ViewHandler struct {
	pipeline       *transform.Pipeline
	views          []config.ViewSpec
	resolver       *palette.Resolver
	maxUploadBytes int64
	logger         *logger.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(
	pipeline *transform.Pipeline,
	views []config.ViewSpec,
	resolver *palette.Resolver,
	maxUploadBytes int64,
	log *logger.Logger,
) *ViewHandler {
	return &ViewHandler{
		pipeline:       pipeline,
		views:          views,
		resolver:       resolver,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

// List returns the configured views
// GET /api/views
func (h *ViewHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"views": h.views,
	})
}

// Render runs the pipeline for one view and returns the figure
// POST /api/views/{view}
func (h *ViewHandler) Render(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["view"]

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fig, err := h.Figure(r.Context(), name, req)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, fig)
	case errors.Is(err, ErrNoContents):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrUnknownView):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

// Figure runs one upload through the pipeline and the palette resolver.
// Shared by the HTTP and websocket transports.
func (h *ViewHandler) Figure(ctx context.Context, name string, req ViewRequest) (*render.Figure, error) {
	view, ok := config.FindView(h.views, name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}

	// 업로드 없음: 파이프라인 호출하지 않음
	if req.Contents == "" {
		return nil, ErrNoContents
	}

	res, err := h.pipeline.Run([]byte(req.Contents), view)
	if err != nil {
		h.logger.WithError(err).WithField("view", name).Warn("Upload rejected")
		return nil, err
	}

	sel := h.resolver.Resolve(ctx, res.Dataset.Len(), req.RandomColors)

	fig, err := render.BuildFigure(res, sel)
	if err != nil {
		return nil, err
	}

	h.logger.WithFields(map[string]interface{}{
		"view":       name,
		"bars":       len(fig.Bars),
		"randomized": fig.RandomColors,
	}).Info("Figure rendered")

	return fig, nil
}
