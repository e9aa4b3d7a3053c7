package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/cms-resource-broker/internal/middleware"
	"github.com/yukikurage/cms-resource-broker/internal/services"
)

// RegisterRoutes mounts the health check and the /api tree on r. Session
// middleware must already be installed.
func RegisterRoutes(r *gin.Engine, broker *services.ResourceBroker, authService *services.AuthService) {
	authHandler := NewAuthHandler(authService, broker)
	projectHandler := NewProjectHandler(broker)
	principalHandler := NewPrincipalHandler(broker)
	metadataHandler := NewMetadataHandler(broker)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "CMS resource broker is running",
		})
	})

	api := r.Group("/api")
	api.Use(middleware.ResolveCaller(authService.Anonymous()))
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.RequireAuth(), authHandler.Logout)
			auth.GET("/me", authHandler.GetCurrentUser)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:name", projectHandler.GetProject)
			projects.DELETE("/:name", projectHandler.DeleteProject)
			projects.POST("/:name/publish", projectHandler.PublishProject)
		}

		users := api.Group("/users")
		{
			users.GET("", principalHandler.ListUsers)
			users.POST("", principalHandler.CreateUser)
			users.GET("/:name", principalHandler.GetUser)
			users.PUT("/:name", principalHandler.UpdateUser)
			users.DELETE("/:name", principalHandler.DeleteUser)
			users.PUT("/:name/password", principalHandler.SetPassword)
			users.GET("/:name/groups", principalHandler.GetGroupsOfUser)
		}

		groups := api.Group("/groups")
		{
			groups.GET("", principalHandler.ListGroups)
			groups.POST("", principalHandler.CreateGroup)
			groups.GET("/:name", principalHandler.GetGroup)
			groups.PUT("/:name", principalHandler.UpdateGroup)
			groups.DELETE("/:name", principalHandler.DeleteGroup)
			groups.GET("/:name/children", principalHandler.GetChildGroups)
			groups.GET("/:name/users", principalHandler.GetUsersOfGroup)
			groups.GET("/:name/members/:user", principalHandler.GetMembership)
			groups.PUT("/:name/members/:user", principalHandler.AddMember)
			groups.DELETE("/:name/members/:user", principalHandler.RemoveMember)
		}

		api.GET("/resource-types", metadataHandler.ListResourceTypes)
		api.POST("/resource-types", metadataHandler.CreateResourceType)

		api.POST("/resources", metadataHandler.CreateResource)
		api.GET("/resources/*path", metadataHandler.GetResource)

		metadata := api.Group("/metadata")
		{
			metadata.GET("/*path", metadataHandler.GetMetainformation)
			metadata.PUT("/*path", metadataHandler.WriteMetainformation)
			metadata.DELETE("/*path", metadataHandler.DeleteMetainformation)
		}

		metadefs := api.Group("/metadefinitions")
		{
			metadefs.GET("/:type", metadataHandler.ListMetadefinitions)
			metadefs.POST("/:type", metadataHandler.CreateMetadefinition)
			metadefs.GET("/:type/:name", metadataHandler.GetMetadefinition)
			metadefs.PUT("/:type/:name", metadataHandler.UpdateMetadefinition)
			metadefs.DELETE("/:type/:name", metadataHandler.DeleteMetadefinition)
		}
	}
}
