package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/cms-resource-broker/internal/dto"
	apierrors "github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/services"
	"github.com/yukikurage/cms-resource-broker/internal/utils"
)

type ProjectHandler struct {
	broker *services.ResourceBroker
}

func NewProjectHandler(broker *services.ResourceBroker) *ProjectHandler {
	return &ProjectHandler{broker: broker}
}

// ListProjects returns the projects the caller may work in
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	projects, err := h.broker.GetAllAccessibleProjects(c.Request.Context(), caller)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	page, meta := utils.Paginate(projects, utils.GetPaginationParams(c))
	c.JSON(http.StatusOK, gin.H{
		"projects":   dto.ToProjectDTOs(page),
		"pagination": meta,
	})
}

// CreateProject creates a project owned by the caller unless an owner is named
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.Owner == "" {
		req.Owner = caller.User
	}

	project, err := h.broker.CreateProject(c.Request.Context(), caller,
		req.Name, req.Description, req.Task, req.Owner, req.Group, req.Flags)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// GetProject returns one project
func (h *ProjectHandler) GetProject(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	project, err := h.broker.ReadProject(c.Request.Context(), caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// PublishProject makes the pending changes of a project visible online
func (h *ProjectHandler) PublishProject(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	project, err := h.broker.PublishProject(c.Request.Context(), caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeleteProject deletes a project and its pending changes
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	if err := h.broker.DeleteProject(c.Request.Context(), caller, c.Param("name")); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
