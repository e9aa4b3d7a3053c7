package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/middleware"
	"github.com/yukikurage/cms-resource-broker/internal/services"
)

// callerOf returns the caller resolved by middleware. It writes a 401 when
// the middleware did not run.
func callerOf(c *gin.Context) (services.Caller, bool) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		apierrors.Unauthorized(c, "")
	}
	return caller, ok
}

// pathParam returns a catch-all route parameter as an absolute path.
func pathParam(c *gin.Context, name string) string {
	path := c.Param(name)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
