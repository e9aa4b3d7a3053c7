package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/cms-resource-broker/internal/constants"
	apierrors "github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/services"
)

// ResolveCaller determines the acting user and the current project of a
// request. Without a session the request acts as the guest user; without
// a project header it works in the online project.
func ResolveCaller(anonymous services.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := anonymous

		session := sessions.Default(c)
		if name, ok := session.Get(constants.SessionKeyUserName).(string); ok && name != "" {
			caller.User = name
		}
		if project := strings.TrimSpace(c.GetHeader(constants.ProjectHeader)); project != "" {
			caller.Project = project
		}

		c.Set(constants.ContextKeyCaller, caller)
		c.Next()
	}
}

// RequireAuth rejects requests that carry no login session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if name, ok := session.Get(constants.SessionKeyUserName).(string); !ok || name == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetCaller retrieves the caller stored by ResolveCaller
func GetCaller(c *gin.Context) (services.Caller, bool) {
	value, exists := c.Get(constants.ContextKeyCaller)
	if !exists {
		return services.Caller{}, false
	}
	caller, ok := value.(services.Caller)
	return caller, ok
}
