package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/cms-resource-broker/internal/dto"
	apierrors "github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/services"
	"github.com/yukikurage/cms-resource-broker/internal/utils"
)

// PrincipalHandler serves the user and group directory.
type PrincipalHandler struct {
	broker *services.ResourceBroker
}

func NewPrincipalHandler(broker *services.ResourceBroker) *PrincipalHandler {
	return &PrincipalHandler{broker: broker}
}

// ListUsers returns every user
func (h *PrincipalHandler) ListUsers(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	users, err := h.broker.GetUsers(c.Request.Context(), caller)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	page, meta := utils.Paginate(users, utils.GetPaginationParams(c))
	c.JSON(http.StatusOK, gin.H{"users": dto.ToUserDTOs(page), "pagination": meta})
}

// CreateUser adds a user
func (h *PrincipalHandler) CreateUser(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.broker.AddUser(c.Request.Context(), caller,
		req.Name, req.Password, req.Group, req.Description, req.AdditionalInfo, req.Flags)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// GetUser returns one user
func (h *PrincipalHandler) GetUser(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	user, err := h.broker.ReadUser(c.Request.Context(), caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateUser rewrites the mutable attributes of a user
func (h *PrincipalHandler) UpdateUser(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	user, err := h.broker.ReadUser(ctx, caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}
	if req.DefaultGroup != "" {
		group, err := h.broker.ReadGroup(ctx, caller, req.DefaultGroup)
		if err != nil {
			apierrors.RespondWithBrokerError(c, err)
			return
		}
		user.DefaultGroupID = group.ID
	}
	user.Description = req.Description
	user.Flags = req.Flags
	user.AdditionalInfo = req.AdditionalInfo
	user.OrgUnit = req.OrgUnit

	if err := h.broker.WriteUser(ctx, caller, user); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser removes a user
func (h *PrincipalHandler) DeleteUser(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	if err := h.broker.DeleteUser(c.Request.Context(), caller, c.Param("name")); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetPassword replaces the password of a user
func (h *PrincipalHandler) SetPassword(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.broker.SetPassword(c.Request.Context(), caller, c.Param("name"), req.Password); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetGroupsOfUser lists the groups of a user
func (h *PrincipalHandler) GetGroupsOfUser(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	groups, err := h.broker.GetGroupsOfUser(c.Request.Context(), caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": dto.ToGroupDTOs(groups)})
}

// ListGroups returns every group, or those of one organizational unit when
// org_unit is given
func (h *PrincipalHandler) ListGroups(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	orgUnit, byUnit := c.GetQuery("org_unit")
	if !byUnit {
		groups, err := h.broker.GetGroups(ctx, caller)
		if err != nil {
			apierrors.RespondWithBrokerError(c, err)
			return
		}
		page, meta := utils.Paginate(groups, utils.GetPaginationParams(c))
		c.JSON(http.StatusOK, gin.H{"groups": dto.ToGroupDTOs(page), "pagination": meta})
		return
	}

	subUnits, err := strconv.ParseBool(c.DefaultQuery("sub_units", "false"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid sub_units value")
		return
	}
	groups, err := h.broker.GetGroupsOfOrgUnit(ctx, caller, orgUnit, subUnits)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}
	page, meta := utils.Paginate(groups, utils.GetPaginationParams(c))
	c.JSON(http.StatusOK, gin.H{"groups": dto.ToGroupDTOs(page), "pagination": meta})
}

// CreateGroup adds a group
func (h *PrincipalHandler) CreateGroup(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	group, err := h.broker.AddGroup(c.Request.Context(), caller, req.Name, req.Description, req.Flags, req.Parent)
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToGroupDTO(*group))
}

// GetGroup returns one group
func (h *PrincipalHandler) GetGroup(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	group, err := h.broker.ReadGroup(c.Request.Context(), caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToGroupDTO(*group))
}

// UpdateGroup rewrites the mutable attributes of a group
func (h *PrincipalHandler) UpdateGroup(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	group, err := h.broker.ReadGroup(ctx, caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}
	group.ParentID = nil
	if req.Parent != "" {
		parent, err := h.broker.ReadGroup(ctx, caller, req.Parent)
		if err != nil {
			apierrors.RespondWithBrokerError(c, err)
			return
		}
		group.ParentID = &parent.ID
	}
	group.Description = req.Description
	group.Flags = req.Flags
	group.OrgUnit = req.OrgUnit

	if err := h.broker.WriteGroup(ctx, caller, group); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToGroupDTO(*group))
}

// DeleteGroup removes a group without subgroups
func (h *PrincipalHandler) DeleteGroup(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	if err := h.broker.DeleteGroup(c.Request.Context(), caller, c.Param("name")); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetChildGroups lists the direct subgroups of a group
func (h *PrincipalHandler) GetChildGroups(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	groups, err := h.broker.GetChild(c.Request.Context(), caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": dto.ToGroupDTOs(groups)})
}

// GetUsersOfGroup lists the members of a group
func (h *PrincipalHandler) GetUsersOfGroup(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	users, err := h.broker.GetUsersOfGroup(c.Request.Context(), caller, c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": dto.ToUserDTOs(users)})
}

// GetMembership reports whether a user belongs to a group
func (h *PrincipalHandler) GetMembership(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	member, err := h.broker.UserInGroup(c.Request.Context(), caller, c.Param("user"), c.Param("name"))
	if err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// AddMember adds a user to a group
func (h *PrincipalHandler) AddMember(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	if err := h.broker.AddUserToGroup(c.Request.Context(), caller, c.Param("user"), c.Param("name")); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveMember removes a user from a group
func (h *PrincipalHandler) RemoveMember(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	if err := h.broker.RemoveUserFromGroup(c.Request.Context(), caller, c.Param("user"), c.Param("name")); err != nil {
		apierrors.RespondWithBrokerError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
