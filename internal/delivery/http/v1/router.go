package v1

import (
	"net/http"

	"contact-form-backend/config"
	"contact-form-backend/internal/delivery/http/middleware"
	"contact-form-backend/internal/delivery/http/response"
	"contact-form-backend/internal/domain"
	"contact-form-backend/pkg/apperror"
	"contact-form-backend/pkg/errorpage"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	ContactUC domain.ContactUsecase
	Pages     *errorpage.Presenter
	Config    *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.BaseHost)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler())

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperror.NotFound("Route not found"))
	})

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "System operational", nil)
	})

	// Public routes
	NewContactHandler(v1, deps.ContactUC, deps.Pages, deps.Config.BaseHost)

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
