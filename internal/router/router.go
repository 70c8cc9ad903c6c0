package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loanserve/support-desk/api"
	"github.com/loanserve/support-desk/internal/handler"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func New(ticketHandler *handler.TicketHandler, agentHandler *handler.AgentHandler) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLog())
	r.GET("/health", gin.WrapF(handler.Health))
	r.GET("/ready", gin.WrapF(handler.Ready))
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/") })
	r.GET("/swagger/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = "/swagger/index.html"
			c.Request.RequestURI = "/swagger/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/agent/tickets", ticketHandler.List)
		v1.POST("/agent/tickets/:id/assign", ticketHandler.Assign)
		v1.POST("/agent/login", agentHandler.Login)
		v1.GET("/agent/ongoing-count", agentHandler.OngoingCount)
		v1.GET("/agent/stats", agentHandler.Stats)
		v1.GET("/agent/canned-responses", agentHandler.CannedResponses)

		v1.GET("/tickets/:id", ticketHandler.Get)
		v1.POST("/tickets/:id/messages", ticketHandler.PostMessage)
		v1.PATCH("/tickets/:id/status", ticketHandler.SetStatus)

		v1.POST("/customer/tickets", ticketHandler.CreateFromContact)
	}

	return r
}
