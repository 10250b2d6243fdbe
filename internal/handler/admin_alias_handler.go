package handler

import (
	"net/http"
	"strconv"

	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/response"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/coursetalk/coursetalk-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AliasHandler exposes the ingestion write path to catalog administrators.
type AliasHandler struct {
	ingestService service.AliasIngestService
	log           zerolog.Logger
}

func NewAliasHandler(ingestService service.AliasIngestService, log zerolog.Logger) *AliasHandler {
	return &AliasHandler{
		ingestService: ingestService,
		log:           log.With().Str("component", "alias_handler").Logger(),
	}
}

type backfillRequest struct {
	Source string `json:"source" binding:"omitempty,max=64"`
}

// GET /api/v1/admin/aliases/:code
func (h *AliasHandler) GetAlias(c *gin.Context) {
	alias, err := h.ingestService.GetAlias(c.Request.Context(), c.Param("code"))
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"alias": alias})
}

// GET /api/v1/admin/courses/:id/aliases
func (h *AliasHandler) ListCourseAliases(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	aliases, err := h.ingestService.ListAliases(c.Request.Context(), id)
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"aliases": aliases})
}

// PUT /api/v1/admin/aliases
func (h *AliasHandler) UpsertAlias(c *gin.Context) {
	var req model.UpsertAliasRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	alias, err := h.ingestService.UpsertAlias(c.Request.Context(), req)
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"alias": alias})
}

// POST /api/v1/admin/aliases/batch
func (h *AliasHandler) EnqueueBatch(c *gin.Context) {
	var req model.BatchAliasRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	n, err := h.ingestService.EnqueueAliases(c.Request.Context(), req.Aliases)
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"queued": n})
}

// PUT /api/v1/admin/cross-list-groups/:group_id
func (h *AliasHandler) SyncCrossListGroup(c *gin.Context) {
	var req model.SyncCrossListGroupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	group, err := h.ingestService.SyncCrossListGroup(c.Request.Context(), c.Param("group_id"), req)
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"group": group})
}

// POST /api/v1/admin/aliases/backfill
func (h *AliasHandler) BackfillSelfAliases(c *gin.Context) {
	var req backfillRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	n, err := h.ingestService.BackfillSelfAliases(c.Request.Context(), req.Source)
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"inserted": n})
}
