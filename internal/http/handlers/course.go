package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type CourseHandler struct {
	courses services.CourseService
}

func NewCourseHandler(courses services.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

type createCourseResponse struct {
	Course any       `json:"course"`
	JobID  uuid.UUID `json:"job_id"`
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, job, err := h.courses.CreateCourse(c.Request.Context(), ctxutil.UserID(c.Request.Context()), req)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondAccepted(c, createCourseResponse{Course: course, JobID: job.ID})
}

// GET /api/courses/:id/status
func (h *CourseHandler) GetStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	st, err := h.courses.GetStatus(c.Request.Context(), ctxutil.UserID(c.Request.Context()), id)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondOK(c, st)
}

// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	course, err := h.courses.GetCourse(c.Request.Context(), ctxutil.UserID(c.Request.Context()), id)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.courses.DeleteCourse(c.Request.Context(), ctxutil.UserID(c.Request.Context()), id); err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/quota
func (h *CourseHandler) GetQuota(c *gin.Context) {
	q, err := h.courses.GetQuota(c.Request.Context(), ctxutil.UserID(c.Request.Context()))
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondOK(c, q)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_id", err))
		return uuid.Nil, false
	}
	return id, true
}
