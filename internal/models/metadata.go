package models

import "time"

type MetadefinitionKind int

const (
	MetadefinitionNormal    MetadefinitionKind = 0
	MetadefinitionMandatory MetadefinitionKind = 1
	MetadefinitionOptional  MetadefinitionKind = 2
)

// Valid reports whether k is one of the known classifications.
func (k MetadefinitionKind) Valid() bool {
	return k >= MetadefinitionNormal && k <= MetadefinitionOptional
}

type Metadefinition struct {
	ID        string             `gorm:"type:varchar(36);primarykey" json:"id"`
	Name      string             `gorm:"type:varchar(128);uniqueIndex:idx_metadef_name_type;not null" json:"name"`
	TypeID    string             `gorm:"type:varchar(36);uniqueIndex:idx_metadef_name_type;not null" json:"type_id"`
	Kind      MetadefinitionKind `gorm:"not null;default:0" json:"kind"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Metainformation is one value of a resource under a definition name, as
// seen from one project. Deleted marks a pending removal.
type Metainformation struct {
	ResourceID string    `gorm:"type:varchar(36);primarykey" json:"resource_id"`
	ProjectID  string    `gorm:"type:varchar(36);primarykey" json:"project_id"`
	Name       string    `gorm:"type:varchar(128);primarykey" json:"name"`
	Value      string    `gorm:"type:text" json:"value"`
	Deleted    bool      `gorm:"not null;default:false" json:"deleted"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Metainformation) TableName() string {
	return "metainformations"
}
