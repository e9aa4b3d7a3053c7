package dto

import (
	"time"

	"github.com/yukikurage/cms-resource-broker/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	OwnerID       string              `json:"owner_id"`
	GroupID       string              `json:"group_id"`
	Flags         int                 `json:"flags"`
	Task          string              `json:"task,omitempty"`
	State         models.ProjectState `json:"state"`
	PublishedAt   *time.Time          `json:"published_at,omitempty"`
	PublishedByID *string             `json:"published_by_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ResourceTypeDTO represents a resource type in API responses
type ResourceTypeDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResourceDTO represents a resource in API responses
type ResourceDTO struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	TypeID      string `json:"type_id"`
	OwnerID     string `json:"owner_id"`
	GroupID     string `json:"group_id"`
	AccessFlags int    `json:"access_flags"`
	ProjectID   string `json:"project_id"`
}

// MetadefinitionDTO represents a metadata definition in API responses
type MetadefinitionDTO struct {
	ID     string                    `json:"id"`
	Name   string                    `json:"name"`
	TypeID string                    `json:"type_id"`
	Kind   models.MetadefinitionKind `json:"kind"`
}

// CreateProjectRequest is the body of POST /api/projects
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description"`
	Task        string `json:"task"`
	Owner       string `json:"owner"`
	Group       string `json:"group" binding:"required"`
	Flags       int    `json:"flags"`
}

// CreateResourceTypeRequest is the body of POST /api/resource-types
type CreateResourceTypeRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

// CreateResourceRequest is the body of POST /api/resources
type CreateResourceRequest struct {
	Path        string `json:"path" binding:"required"`
	Type        string `json:"type" binding:"required"`
	AccessFlags int    `json:"access_flags"`
}

// CreateMetadefinitionRequest is the body of POST /api/metadefinitions/:type
type CreateMetadefinitionRequest struct {
	Name string                    `json:"name" binding:"required"`
	Kind models.MetadefinitionKind `json:"kind"`
}

// UpdateMetadefinitionRequest is the body of PUT /api/metadefinitions/:type/:name
type UpdateMetadefinitionRequest struct {
	Kind models.MetadefinitionKind `json:"kind"`
}

// MetainformationResponse carries the values of one resource
type MetainformationResponse struct {
	Path   string            `json:"path"`
	Values map[string]string `json:"values"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:            project.ID,
		Name:          project.Name,
		Description:   project.Description,
		OwnerID:       project.OwnerID,
		GroupID:       project.GroupID,
		Flags:         project.Flags,
		Task:          project.TaskID,
		State:         project.State,
		PublishedAt:   project.PublishedAt,
		PublishedByID: project.PublishedByID,
		CreatedAt:     project.CreatedAt,
	}
}

// ToProjectDTOs converts a list of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	dtos := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		dtos[i] = ToProjectDTO(project)
	}
	return dtos
}

// ToResourceTypeDTOs converts a list of resource types
func ToResourceTypeDTOs(types []models.ResourceType) []ResourceTypeDTO {
	dtos := make([]ResourceTypeDTO, len(types))
	for i, rt := range types {
		dtos[i] = ResourceTypeDTO{ID: rt.ID, Name: rt.Name}
	}
	return dtos
}

// ToResourceDTO converts a Resource model to ResourceDTO
func ToResourceDTO(resource models.Resource) ResourceDTO {
	return ResourceDTO{
		ID:          resource.ID,
		Path:        resource.Path,
		TypeID:      resource.TypeID,
		OwnerID:     resource.OwnerID,
		GroupID:     resource.GroupID,
		AccessFlags: resource.AccessFlags,
		ProjectID:   resource.ProjectID,
	}
}

// ToMetadefinitionDTO converts a Metadefinition model to MetadefinitionDTO
func ToMetadefinitionDTO(def models.Metadefinition) MetadefinitionDTO {
	return MetadefinitionDTO{
		ID:     def.ID,
		Name:   def.Name,
		TypeID: def.TypeID,
		Kind:   def.Kind,
	}
}

// ToMetadefinitionDTOs converts a list of definitions
func ToMetadefinitionDTOs(defs []models.Metadefinition) []MetadefinitionDTO {
	dtos := make([]MetadefinitionDTO, len(defs))
	for i, def := range defs {
		dtos[i] = ToMetadefinitionDTO(def)
	}
	return dtos
}
