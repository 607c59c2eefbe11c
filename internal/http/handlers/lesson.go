package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/http/response"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursegen-backend/internal/services"
)

type LessonHandler struct {
	courses services.CourseService
}

func NewLessonHandler(courses services.CourseService) *LessonHandler {
	return &LessonHandler{courses: courses}
}

type translateRequest struct {
	Language string `json:"language" binding:"required"`
}

// POST /api/lessons/:id/translations
func (h *LessonHandler) RequestTranslation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.courses.RequestTranslation(c.Request.Context(), ctxutil.UserID(c.Request.Context()), id, req.Language)
	if err != nil {
		response.RespondAPIError(c, toAPIError(err))
		return
	}
	response.RespondAccepted(c, gin.H{"job_id": job.ID})
}
