package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/cms-resource-broker/internal/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned on uniqueness or structural violations.
	ErrConflict = errors.New("repository: conflict")
)

// UserGroupStore defines data access for users, groups and memberships
type UserGroupStore interface {
	// CreateUser creates a user and its default group membership
	CreateUser(ctx context.Context, user *models.User) error

	// FindUserByName finds a user by name
	FindUserByName(ctx context.Context, name string) (*models.User, error)

	// FindUserByID finds a user by ID
	FindUserByID(ctx context.Context, id string) (*models.User, error)

	// UpdateUser writes all mutable user fields
	UpdateUser(ctx context.Context, user *models.User) error

	// DeleteUser logically deletes a user and drops its memberships
	DeleteUser(ctx context.Context, id string) error

	// ListUsers lists all users
	ListUsers(ctx context.Context) ([]models.User, error)

	// CreateGroup creates a group; the parent, if any, must exist
	CreateGroup(ctx context.Context, group *models.Group) error

	// FindGroupByName finds a group by name
	FindGroupByName(ctx context.Context, name string) (*models.Group, error)

	// FindGroupByID finds a group by ID
	FindGroupByID(ctx context.Context, id string) (*models.Group, error)

	// UpdateGroup writes all mutable group fields
	UpdateGroup(ctx context.Context, group *models.Group) error

	// DeleteGroup deletes a group that has no subgroups and is not used by a project
	DeleteGroup(ctx context.Context, id string) error

	// ListGroups lists all groups
	ListGroups(ctx context.Context) ([]models.Group, error)

	// ListChildGroups lists the direct subgroups of a group
	ListChildGroups(ctx context.Context, parentID string) ([]models.Group, error)

	// ListGroupsInOrgUnit lists groups of an organizational unit, optionally including sub units
	ListGroupsInOrgUnit(ctx context.Context, orgUnit string, includeSubUnits bool) ([]models.Group, error)

	// ListGroupsOfUser lists the groups a user is a member of
	ListGroupsOfUser(ctx context.Context, userID string) ([]models.Group, error)

	// ListUsersOfGroup lists the members of a group
	ListUsersOfGroup(ctx context.Context, groupID string) ([]models.User, error)

	// IsMember reports whether a user is a member of a group
	IsMember(ctx context.Context, userID, groupID string) (bool, error)

	// AddMember adds a membership; adding an existing membership is a no-op
	AddMember(ctx context.Context, userID, groupID string) error

	// RemoveMember removes a membership; removing a missing membership is a no-op
	RemoveMember(ctx context.Context, userID, groupID string) error
}

// ProjectStore defines data access for projects
type ProjectStore interface {
	// CreateProject creates a new project
	CreateProject(ctx context.Context, project *models.Project) error

	// FindProjectByName finds a project by name
	FindProjectByName(ctx context.Context, name string) (*models.Project, error)

	// FindProjectByID finds a project by ID
	FindProjectByID(ctx context.Context, id string) (*models.Project, error)

	// OnlineProject returns the singleton online project
	OnlineProject(ctx context.Context) (*models.Project, error)

	// ListProjects lists all projects
	ListProjects(ctx context.Context) ([]models.Project, error)

	// DeleteProject deletes a project together with its pending changes
	DeleteProject(ctx context.Context, id string) error

	// Publish moves every pending resource and metainformation of a project
	// into the online project and marks the project published, atomically
	Publish(ctx context.Context, projectID, publisherID string) (*models.Project, error)
}

// ResourceStore defines data access for resources and resource types
type ResourceStore interface {
	// CreateResourceType creates a resource type
	CreateResourceType(ctx context.Context, rt *models.ResourceType) error

	// FindResourceType finds a resource type by name
	FindResourceType(ctx context.Context, name string) (*models.ResourceType, error)

	// ListResourceTypes lists all resource types
	ListResourceTypes(ctx context.Context) ([]models.ResourceType, error)

	// CreateResource creates a resource pending in its project
	CreateResource(ctx context.Context, resource *models.Resource) error

	// FindResource finds a resource by path as visible from a project
	FindResource(ctx context.Context, path, projectID, onlineID string) (*models.Resource, error)
}

// MetadefinitionStore defines data access for metadata definitions
type MetadefinitionStore interface {
	// CreateMetadefinition creates a definition, unique per name and type
	CreateMetadefinition(ctx context.Context, def *models.Metadefinition) error

	// FindMetadefinition finds a definition by name and resource type
	FindMetadefinition(ctx context.Context, name, typeID string) (*models.Metadefinition, error)

	// ListMetadefinitions lists definitions of a type, optionally of one kind
	ListMetadefinitions(ctx context.Context, typeID string, kind *models.MetadefinitionKind) ([]models.Metadefinition, error)

	// UpdateMetadefinition rewrites a definition that no metainformation references
	UpdateMetadefinition(ctx context.Context, def *models.Metadefinition) error

	// DeleteMetadefinition deletes a definition that no metainformation references
	DeleteMetadefinition(ctx context.Context, id string) error
}

// PropertyStore defines data access for metainformation values. Reads in a
// project overlay its pending values on the online values.
type PropertyStore interface {
	// ReadValue reads one value as visible from a project
	ReadValue(ctx context.Context, resourceID, projectID, onlineID, name string) (string, error)

	// ReadAll reads all values as visible from a project
	ReadAll(ctx context.Context, resourceID, projectID, onlineID string) (map[string]string, error)

	// WriteValues upserts values as pending changes of a project
	WriteValues(ctx context.Context, resourceID, projectID string, values map[string]string) error

	// DeleteValues records removals of the named values in a project; nil
	// names removes every value visible from the project
	DeleteValues(ctx context.Context, resourceID, projectID, onlineID string, names []string) error
}

// Stores bundles one implementation per concern.
type Stores struct {
	UserGroups      UserGroupStore
	Projects        ProjectStore
	Resources       ResourceStore
	Metadefinitions MetadefinitionStore
	Properties      PropertyStore

	// Close releases the backing connection, if any.
	Close func() error
}
