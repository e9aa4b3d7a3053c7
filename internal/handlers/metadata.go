package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/cms-resource-broker/internal/dto"
	apierrors "github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/services"
)

// MetadataHandler serves resource types, resources, metadata definitions
// and metainformation.
type MetadataHandler struct {
	broker *services.ResourceBroker
}

func NewMetadataHandler(broker *services.ResourceBroker) *MetadataHandler {
	return &MetadataHandler{broker: broker}
}

// ListResourceTypes returns every resource type
func (h *MetadataHandler) ListResourceTypes(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	types, err := h.broker.GetAllResourceTypes(c.Request.Context(), caller)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"resource_types": dto.ToResourceTypeDTOs(types)})
}

// CreateResourceType registers a resource type
func (h *MetadataHandler) CreateResourceType(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.CreateResourceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	rt, err := h.broker.AddResourceType(c.Request.Context(), caller, req.Name)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ResourceTypeDTO{ID: rt.ID, Name: rt.Name})
}

// CreateResource creates a resource in the current project
func (h *MetadataHandler) CreateResource(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	resource, err := h.broker.CreateResource(c.Request.Context(), caller, req.Path, req.Type, req.AccessFlags)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToResourceDTO(*resource))
}

// GetResource returns a resource as visible from the current project
func (h *MetadataHandler) GetResource(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	resource, err := h.broker.ReadResource(c.Request.Context(), caller, pathParam(c, "path"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToResourceDTO(*resource))
}

// ListMetadefinitions returns the definitions of a type, of one kind when
// kind is given
func (h *MetadataHandler) ListMetadefinitions(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	typeName := c.Param("type")

	var (
		defs []models.Metadefinition
		err  error
	)
	if raw, byKind := c.GetQuery("kind"); byKind {
		kind, convErr := strconv.Atoi(raw)
		if convErr != nil {
			apierrors.BadRequest(c, "Invalid kind")
			return
		}
		defs, err = h.broker.ReadAllMetadefinitionsOfKind(ctx, caller, typeName, models.MetadefinitionKind(kind))
	} else {
		defs, err = h.broker.ReadAllMetadefinitions(ctx, caller, typeName)
	}
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"metadefinitions": dto.ToMetadefinitionDTOs(defs)})
}

// CreateMetadefinition adds a definition to a type
func (h *MetadataHandler) CreateMetadefinition(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.CreateMetadefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	def, err := h.broker.CreateMetadefinition(c.Request.Context(), caller, req.Name, c.Param("type"), req.Kind)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMetadefinitionDTO(*def))
}

// GetMetadefinition returns one definition
func (h *MetadataHandler) GetMetadefinition(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	def, err := h.broker.ReadMetadefinition(c.Request.Context(), caller, c.Param("name"), c.Param("type"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMetadefinitionDTO(*def))
}

// UpdateMetadefinition changes the kind of an unreferenced definition
func (h *MetadataHandler) UpdateMetadefinition(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.UpdateMetadefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	def, err := h.broker.ReadMetadefinition(ctx, caller, c.Param("name"), c.Param("type"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}
	def.Kind = req.Kind
	if err := h.broker.WriteMetadefinition(ctx, caller, def); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMetadefinitionDTO(*def))
}

// DeleteMetadefinition removes an unreferenced definition
func (h *MetadataHandler) DeleteMetadefinition(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	if err := h.broker.DeleteMetadefinition(c.Request.Context(), caller, c.Param("name"), c.Param("type")); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMetainformation returns every value of a resource, or one value when
// name is given
func (h *MetadataHandler) GetMetainformation(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	path := pathParam(c, "path")

	if name, single := c.GetQuery("name"); single {
		value, err := h.broker.ReadMetainformation(ctx, caller, path, name)
		if err != nil {
			apierrors.RespondWithBrokerError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.MetainformationResponse{Path: path, Values: map[string]string{name: value}})
		return
	}

	values, err := h.broker.ReadAllMetainformations(ctx, caller, path)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MetainformationResponse{Path: path, Values: values})
}

// WriteMetainformation writes the values of the request body
func (h *MetadataHandler) WriteMetainformation(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.broker.WriteMetainformations(c.Request.Context(), caller, pathParam(c, "path"), values); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteMetainformation removes one value when name is given, otherwise all
func (h *MetadataHandler) DeleteMetainformation(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	path := pathParam(c, "path")

	var err error
	if name, single := c.GetQuery("name"); single {
		err = h.broker.DeleteMetainformation(ctx, caller, path, name)
	} else {
		err = h.broker.DeleteAllMetainformations(ctx, caller, path)
	}
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
