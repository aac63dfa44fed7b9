package server

import (
	"github.com/triplehop/triplehop/internal/server/middleware"
	"github.com/triplehop/triplehop/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Question answering routes
	apiRoutes.POST("/ask", routes.AskHandler)
	apiRoutes.POST("/ask/async", routes.AskAsyncHandler)
	apiRoutes.GET("/answers/:id", routes.GetAnswerHandler)
	apiRoutes.GET("/answers", routes.ListAnswersHandler)
}
