// Package access decides whether a principal may run a broker operation.
// Evaluation is pure: principals are resolved by the caller.
package access

import (
	"slices"

	"github.com/yukikurage/cms-resource-broker/internal/models"
)

type Operation string

const (
	// Project operations
	OpProjectRead    Operation = "project.read"
	OpProjectList    Operation = "project.list"
	OpProjectCreate  Operation = "project.create"
	OpProjectPublish Operation = "project.publish"
	OpProjectDelete  Operation = "project.delete"

	// Directory reads of users, groups and memberships
	OpDirectoryRead Operation = "directory.read"

	// Schema operations
	OpMetadefRead       Operation = "metadef.read"
	OpMetadefWrite      Operation = "metadef.write"
	OpResourceTypeRead  Operation = "resourcetype.read"
	OpResourceTypeWrite Operation = "resourcetype.write"

	// Resource and metadata operations
	OpResourceRead   Operation = "resource.read"
	OpResourceCreate Operation = "resource.create"
	OpMetainfoRead   Operation = "metainfo.read"
	OpMetainfoWrite  Operation = "metainfo.write"

	// Principal administration
	OpPrincipalWrite    Operation = "principal.write"
	OpPrincipalPassword Operation = "principal.password"

	// Questions a principal asks about itself, and logging in
	OpPrincipalSelf         Operation = "principal.self"
	OpPrincipalAuthenticate Operation = "principal.authenticate"
)

// Rule names reported with a decision.
const (
	RuleEveryone         = "everyone"
	RuleAuthenticated    = "authenticated"
	RuleAnonymousOnline  = "anonymous_online_only"
	RuleAdmin            = "admin"
	RuleAdminOrLeader    = "admin_or_project_leader"
	RuleAdminOrOwner     = "admin_or_owner"
	RuleAdminOrSelf      = "admin_or_self"
	RuleProjectAccess    = "project_access"
	RuleOnlineReadOnly   = "online_read_only"
	RuleResourceRead     = "resource_read"
	RuleResourceWrite    = "resource_write"
	RuleMissingTarget    = "missing_target"
	RuleUnknownOperation = "unknown_operation"
)

// Principal is an acting user together with every group it belongs to.
type Principal struct {
	User   *models.User
	Groups []models.Group
}

// InGroup reports whether the principal is a member of the named group.
func (p Principal) InGroup(name string) bool {
	return slices.ContainsFunc(p.Groups, func(g models.Group) bool { return g.Name == name })
}

func (p Principal) inGroupID(id string) bool {
	return slices.ContainsFunc(p.Groups, func(g models.Group) bool { return g.ID == id })
}

// Request describes one operation to check. Project is the current
// project, or the target project for project operations.
type Request struct {
	Principal Principal
	Operation Operation
	Project   *models.Project
	Resource  *models.Resource
	// TargetUser names the user whose password is changed.
	TargetUser string
}

type Decision struct {
	Allowed bool
	Rule    string
}

func allow(rule string) Decision { return Decision{Allowed: true, Rule: rule} }
func deny(rule string) Decision  { return Decision{Rule: rule} }

// Roles names the built-in groups and users the policy refers to.
type Roles struct {
	AdminGroup         string
	ProjectLeaderGroup string
	GuestUser          string
}

type Evaluator struct {
	roles Roles
}

func NewEvaluator(roles Roles) *Evaluator {
	return &Evaluator{roles: roles}
}

// IsAdmin is true iff the group set contains the administrators group.
func (e *Evaluator) IsAdmin(p Principal) bool {
	return p.InGroup(e.roles.AdminGroup)
}

// IsProjectLeader is true iff the group set contains the project leader group.
func (e *Evaluator) IsProjectLeader(p Principal) bool {
	return p.InGroup(e.roles.ProjectLeaderGroup)
}

// IsAnonymous reports whether p acts as the guest user.
func (e *Evaluator) IsAnonymous(p Principal) bool {
	return p.User == nil || p.User.Name == e.roles.GuestUser
}

func (e *Evaluator) isOwner(p Principal, project *models.Project) bool {
	return p.User != nil && project != nil && project.OwnerID == p.User.ID
}

// CanAccessProject reports whether p may work in project.
func (e *Evaluator) CanAccessProject(p Principal, project *models.Project) bool {
	if project == nil {
		return false
	}
	if project.IsOnline() {
		return true
	}
	if e.IsAnonymous(p) {
		return false
	}
	return e.IsAdmin(p) || e.isOwner(p, project) || p.inGroupID(project.GroupID)
}

// CanReadResource reports whether p may read resource as seen from project.
func (e *Evaluator) CanReadResource(p Principal, project *models.Project, resource *models.Resource) bool {
	if resource == nil || !e.CanAccessProject(p, project) {
		return false
	}
	if e.IsAnonymous(p) {
		return project.IsOnline() && resource.ProjectID == project.ID && resource.HasAccess(models.AccessPublicRead)
	}
	if e.IsAdmin(p) || resource.HasAccess(models.AccessPublicRead) {
		return true
	}
	if resource.OwnerID == p.User.ID && resource.HasAccess(models.AccessOwnerRead) {
		return true
	}
	return p.inGroupID(resource.GroupID) && resource.HasAccess(models.AccessGroupRead)
}

// CanWriteResource reports whether p may modify resource in project.
// Nobody writes in the online project.
func (e *Evaluator) CanWriteResource(p Principal, project *models.Project, resource *models.Resource) bool {
	if resource == nil || project == nil || project.IsOnline() || e.IsAnonymous(p) {
		return false
	}
	if !e.CanAccessProject(p, project) {
		return false
	}
	if e.IsAdmin(p) || resource.HasAccess(models.AccessPublicWrite) {
		return true
	}
	if resource.OwnerID == p.User.ID && resource.HasAccess(models.AccessOwnerWrite) {
		return true
	}
	return p.inGroupID(resource.GroupID) && resource.HasAccess(models.AccessGroupWrite)
}

// Check applies the policy table to req.
func (e *Evaluator) Check(req Request) Decision {
	p := req.Principal
	anonymous := e.IsAnonymous(p)

	switch req.Operation {
	case OpProjectList, OpMetadefRead, OpResourceTypeRead, OpPrincipalSelf, OpPrincipalAuthenticate:
		return allow(RuleEveryone)

	case OpProjectRead:
		if req.Project == nil {
			return deny(RuleMissingTarget)
		}
		if anonymous && !req.Project.IsOnline() {
			return deny(RuleAnonymousOnline)
		}
		return allow(RuleEveryone)

	case OpProjectCreate:
		if !anonymous && (e.IsAdmin(p) || e.IsProjectLeader(p)) {
			return allow(RuleAdminOrLeader)
		}
		return deny(RuleAdminOrLeader)

	case OpProjectPublish, OpProjectDelete:
		if !anonymous && (e.IsAdmin(p) || e.isOwner(p, req.Project)) {
			return allow(RuleAdminOrOwner)
		}
		return deny(RuleAdminOrOwner)

	case OpDirectoryRead:
		if anonymous {
			return deny(RuleAuthenticated)
		}
		return allow(RuleAuthenticated)

	case OpMetadefWrite, OpResourceTypeWrite, OpPrincipalWrite:
		if !anonymous && e.IsAdmin(p) {
			return allow(RuleAdmin)
		}
		return deny(RuleAdmin)

	case OpPrincipalPassword:
		if anonymous {
			return deny(RuleAdminOrSelf)
		}
		if e.IsAdmin(p) || (req.TargetUser != "" && req.TargetUser == p.User.Name) {
			return allow(RuleAdminOrSelf)
		}
		return deny(RuleAdminOrSelf)

	case OpResourceCreate:
		if anonymous {
			return deny(RuleAuthenticated)
		}
		if req.Project == nil || req.Project.IsOnline() {
			return deny(RuleOnlineReadOnly)
		}
		if !e.CanAccessProject(p, req.Project) {
			return deny(RuleProjectAccess)
		}
		return allow(RuleProjectAccess)

	case OpResourceRead, OpMetainfoRead:
		if e.CanReadResource(p, req.Project, req.Resource) {
			return allow(RuleResourceRead)
		}
		return deny(RuleResourceRead)

	case OpMetainfoWrite:
		if req.Project != nil && req.Project.IsOnline() {
			return deny(RuleOnlineReadOnly)
		}
		if e.CanWriteResource(p, req.Project, req.Resource) {
			return allow(RuleResourceWrite)
		}
		return deny(RuleResourceWrite)
	}

	return deny(RuleUnknownOperation)
}
