package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine serving h.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = true

	r.Use(requestID(), h.accessLog(), h.recovery())

	r.NoRoute(func(c *gin.Context) { writeDetail(c, http.StatusNotFound, "Not Found") })
	r.NoMethod(func(c *gin.Context) { writeDetail(c, http.StatusMethodNotAllowed, "Method Not Allowed") })

	r.GET("/healthz", h.Health)
	r.POST("/token", h.Token)

	authed := r.Group("/", h.requirePrincipal())
	{
		authed.GET("/users/me", h.Me)
		authed.GET("/users/me/", h.Me)
		authed.POST("/statistics", h.Statistics)
	}
	return r
}
