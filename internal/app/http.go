package app

import (
	apphttp "github.com/yungbote/coursegen-backend/internal/http"
	httpH "github.com/yungbote/coursegen-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursegen-backend/internal/http/middleware"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, svcs Services) *apphttp.Server {
	log.Info("Wiring HTTP server...")
	return apphttp.NewServer(":"+cfg.Port, apphttp.RouterConfig{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
		CourseHandler:  httpH.NewCourseHandler(svcs.Course),
		LessonHandler:  httpH.NewLessonHandler(svcs.Course),
		HealthHandler:  httpH.NewHealthHandler(),
	})
}
