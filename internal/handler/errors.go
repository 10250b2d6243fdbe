package handler

import (
	"errors"
	"net/http"

	"github.com/coursetalk/coursetalk-backend/internal/response"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// failWithServiceError maps service errors onto the response envelope.
func failWithServiceError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
	case errors.Is(err, service.ErrAliasNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAliasNotFound)
	case errors.Is(err, service.ErrInvalidAlias):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAlias)
	case errors.Is(err, service.ErrInvalidGroup):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidGroup)
	case errors.Is(err, service.ErrEmptyQuery):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"q": "q must contain a course code or name"})
	case errors.Is(err, service.ErrStoreUnavailable):
		log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", response.RequestID(c)).Msg("store unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", response.RequestID(c)).Msg("unhandled error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
