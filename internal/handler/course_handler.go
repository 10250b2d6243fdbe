package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/response"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/coursetalk/coursetalk-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultReviewsPerPage = 20

// CourseHandler serves course pages, group reviews and catalog search.
type CourseHandler struct {
	courseService service.CourseService
	log           zerolog.Logger
}

func NewCourseHandler(courseService service.CourseService, log zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		log:           log.With().Str("component", "course_handler").Logger(),
	}
}

// GetCourse godoc
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	res, page, err := h.courseService.GetPage(c.Request.Context(), id)
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	if res.Redirect {
		redirectToCanonical(c, res.CanonicalID)
		return
	}

	response.Success(c, http.StatusOK, page)
}

// GetReviews godoc
// GET /api/v1/courses/:id/reviews?page=&per_page=
func (h *CourseHandler) GetReviews(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}

	var q model.ReviewPageQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = defaultReviewsPerPage
	}

	res, reviews, err := h.courseService.GetReviews(c.Request.Context(), id)
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	if res.Redirect {
		redirectToCanonical(c, res.CanonicalID)
		return
	}

	total := len(reviews)
	start := total
	if q.Page-1 <= total/q.PerPage {
		start = min((q.Page-1)*q.PerPage, total)
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"reviews": reviews[start:end]}, &response.Pagination{
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalItems: total,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
	})
}

// Search godoc
// GET /api/v1/courses/search?q=&limit=
func (h *CourseHandler) Search(c *gin.Context) {
	var q model.CourseSearchQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.courseService.Search(c.Request.Context(), q.Q, q.Limit)
	if err != nil {
		failWithServiceError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ExpandDepartment godoc
// GET /api/v1/departments/expand?q=
func (h *CourseHandler) ExpandDepartment(c *gin.Context) {
	var q model.DepartmentExpandQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"query":       q.Q,
		"departments": h.courseService.ExpandDepartment(q.Q),
	})
}

func courseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// redirectToCanonical re-targets the matched route at canonicalID, keeping
// any sub-path and the query string.
func redirectToCanonical(c *gin.Context, canonicalID int) {
	target := strings.Replace(c.FullPath(), ":id", strconv.Itoa(canonicalID), 1)
	if raw := c.Request.URL.RawQuery; raw != "" {
		target += "?" + raw
	}
	response.Redirect(c, target)
}
