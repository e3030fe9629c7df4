// Package handler exposes the import pipeline over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/confirmation"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/import/schema"
	importsvc "github.com/jpcornejo/finanzas-tracker/internal/domain/import/service"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/rules"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/staging"
	"github.com/jpcornejo/finanzas-tracker/internal/tabular"
)

// headerScanWindow caps how far into a file the header search goes.
const headerScanWindow = 20

// ImportService runs the statement pipeline.
type ImportService interface {
	ImportStatement(ctx context.Context, userID uuid.UUID, rows [][]string) (*importsvc.Summary, error)
}

// StagingService manages pending transactions.
type StagingService interface {
	List(ctx context.Context, userID uuid.UUID, batchID *string) ([]staging.PendingTransaction, error)
	UpdateCategory(ctx context.Context, id, userID, categoryID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// ConfirmationService promotes pending transactions into the ledger.
type ConfirmationService interface {
	Confirm(ctx context.Context, userID uuid.UUID, pendingIDs []uuid.UUID, overrides map[uuid.UUID]uuid.UUID) (*confirmation.Result, error)
}

// RulesService manages import rules.
type RulesService interface {
	ListRules(ctx context.Context, userID uuid.UUID) ([]rules.ImportRule, error)
	CreateRule(ctx context.Context, userID uuid.UUID, input rules.CreateRuleInput) (*rules.ImportRule, error)
	UpdateRule(ctx context.Context, id, userID uuid.UUID, input rules.UpdateRuleInput) (*rules.ImportRule, error)
	DeleteRule(ctx context.Context, id, userID uuid.UUID) error
}

type Handler struct {
	imports        ImportService
	staging        StagingService
	confirmations  ConfirmationService
	rules          RulesService
	logger         *slog.Logger
	maxUploadBytes int64
}

func New(imports ImportService, stagingSvc StagingService, confirmations ConfirmationService, rulesSvc RulesService, logger *slog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		imports:        imports,
		staging:        stagingSvc,
		confirmations:  confirmations,
		rules:          rulesSvc,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes mounts every import endpoint on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/statements", h.handleImportStatement)

	r.Route("/pending", func(r chi.Router) {
		r.Get("/", h.handleListPending)
		r.Patch("/{id}/category", h.handleUpdateCategory)
		r.Delete("/{id}", h.handleDeletePending)
	})

	r.Post("/confirm", h.handleConfirm)

	r.Route("/rules", func(r chi.Router) {
		r.Get("/", h.handleListRules)
		r.Post("/", h.handleCreateRule)
		r.Patch("/{id}", h.handleUpdateRule)
		r.Delete("/{id}", h.handleDeleteRule)
	})

	return r
}

func (h *Handler) handleImportStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "file too large or malformed upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "reading upload")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	rows, err := tabular.Decode(data)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	rows = tabular.TrimToHeader(rows, headerScanWindow, func(row []string) bool {
		_, err := schema.Detect(row)
		return err == nil
	})

	h.logger.Info("statement upload received",
		"user_id", userID,
		"filename", header.Filename,
		"bytes", len(data),
		"rows", len(rows),
	)

	summary, err := h.imports.ImportStatement(r.Context(), userID, rows)
	if err != nil {
		h.writeImportError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, summary)
}

func (h *Handler) writeImportError(w http.ResponseWriter, err error) {
	var detection *schema.DetectionError
	var tooMany *importsvc.TooManyRowsError
	switch {
	case errors.As(err, &detection):
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, errorResponse{
			Error:   "could not detect statement columns",
			Details: map[string]any{"missing": detection.Missing, "headers": detection.Headers},
		})
	case errors.As(err, &tooMany):
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, tooMany.Error())
	case errors.Is(err, importsvc.ErrEmptyStatement):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("importing statement", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "import failed")
	}
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}

	var batchID *string
	if b := r.URL.Query().Get("batch_id"); b != "" {
		batchID = &b
	}

	pending, err := h.staging.List(r.Context(), userID, batchID)
	if err != nil {
		h.logger.Error("listing pending transactions", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "listing pending transactions failed")
		return
	}
	if pending == nil {
		pending = []staging.PendingTransaction{}
	}
	writeJSON(w, h.logger, http.StatusOK, pending)
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}
	pendingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid pending transaction id")
		return
	}

	var body struct {
		CategoryID uuid.UUID `json:"category_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.staging.UpdateCategory(r.Context(), pendingID, userID, body.CategoryID)
	switch {
	case errors.Is(err, staging.ErrPendingNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, staging.ErrCategoryNotOwned):
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		h.logger.Error("updating pending category", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "updating category failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleDeletePending(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}
	pendingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid pending transaction id")
		return
	}

	err = h.staging.Delete(r.Context(), pendingID, userID)
	switch {
	case errors.Is(err, staging.ErrPendingNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case err != nil:
		h.logger.Error("deleting pending transaction", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "deleting pending transaction failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}

	var body struct {
		PendingIDs []uuid.UUID             `json:"pending_ids"`
		Overrides  map[uuid.UUID]uuid.UUID `json:"category_overrides"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.PendingIDs) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "pending_ids must not be empty")
		return
	}

	result, err := h.confirmations.Confirm(r.Context(), userID, body.PendingIDs, body.Overrides)
	if err != nil {
		h.logger.Error("confirming pending transactions", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "confirmation failed")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}

	ruleSet, err := h.rules.ListRules(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing rules", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "listing rules failed")
		return
	}
	if ruleSet == nil {
		ruleSet = []rules.ImportRule{}
	}
	writeJSON(w, h.logger, http.StatusOK, ruleSet)
}

func (h *Handler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}

	var input rules.CreateRuleInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.rules.CreateRule(r.Context(), userID, input)
	if err != nil {
		h.writeRuleError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, rule)
}

func (h *Handler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}
	ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid rule id")
		return
	}

	var input rules.UpdateRuleInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.rules.UpdateRule(r.Context(), ruleID, userID, input)
	if err != nil {
		h.writeRuleError(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rule)
}

func (h *Handler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing user identity")
		return
	}
	ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid rule id")
		return
	}

	err = h.rules.DeleteRule(r.Context(), ruleID, userID)
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case err != nil:
		h.logger.Error("deleting rule", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "deleting rule failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) writeRuleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, rules.ErrEmptyKeyword):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, rules.ErrCategoryNotOwned):
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("rule operation", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "rule operation failed")
	}
}
