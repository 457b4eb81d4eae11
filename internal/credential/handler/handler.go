package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credrec/internal/credential/models"
	"credrec/internal/platform/middleware"
	"credrec/pkg/domain"
	dErrors "credrec/pkg/domain-errors"
	"credrec/pkg/platform/httputil"
)

// Service defines the credential record operations exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, instance domain.InstanceID, caller domain.Caller, hash string, status models.Status) error
	GetHash(ctx context.Context, instance domain.InstanceID, caller domain.Caller) (string, error)
	GetStatus(ctx context.Context, instance domain.InstanceID, caller domain.Caller) (models.Status, error)
	GetCredentialInfo(ctx context.Context, instance domain.InstanceID, caller domain.Caller) (models.CredentialInfo, error)
	UpdateStatus(ctx context.Context, instance domain.InstanceID, caller domain.Caller, status models.Status) error
}

// Handler handles credential record endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new credential record Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register registers the credential record routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/instances/{instanceID}", func(r chi.Router) {
		r.Post("/initialize", h.HandleInitialize)
		r.Get("/", h.HandleGetCredentialInfo)
		r.Get("/hash", h.HandleGetHash)
		r.Get("/status", h.HandleGetStatus)
		r.Put("/status", h.HandleUpdateStatus)
	})
}

// HandleInitialize sets the fingerprint and status of an instance.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	instance, ok := h.instanceFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.InitializeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Initialize(ctx, instance, middleware.GetCaller(ctx), req.Hash, req.Status); err != nil {
		h.writeServiceError(ctx, w, "initialize", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetHash returns the fingerprint of an instance.
func (h *Handler) HandleGetHash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instance, ok := h.instanceFromPath(w, r)
	if !ok {
		return
	}

	hash, err := h.service.GetHash(ctx, instance, middleware.GetCaller(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "get_hash", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.HashResponse{Hash: hash})
}

// HandleGetStatus returns the status of an instance.
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instance, ok := h.instanceFromPath(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetStatus(ctx, instance, middleware.GetCaller(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "get_status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.StatusResponse{Status: status})
}

// HandleGetCredentialInfo returns both fields of an instance.
func (h *Handler) HandleGetCredentialInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instance, ok := h.instanceFromPath(w, r)
	if !ok {
		return
	}

	info, err := h.service.GetCredentialInfo(ctx, instance, middleware.GetCaller(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "get_credential_info", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

// HandleUpdateStatus replaces the status of an instance.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	instance, ok := h.instanceFromPath(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.UpdateStatus(ctx, instance, middleware.GetCaller(ctx), req.Status); err != nil {
		h.writeServiceError(ctx, w, "update_status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) instanceFromPath(w http.ResponseWriter, r *http.Request) (domain.InstanceID, bool) {
	instance, err := domain.ParseInstanceID(chi.URLParam(r, "instanceID"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid instance id",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return domain.InstanceID{}, false
	}
	return instance, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodeHostFailure) || dErrors.HasCode(err, dErrors.CodeInternal) {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "invocation rejected",
		"op", op,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}
