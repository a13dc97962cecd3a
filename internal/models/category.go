package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/pharmacart/internal/utils"
)

// Category groups products; categories form a tree via ParentID.
type Category struct {
	BaseModel
	Name        string     `gorm:"uniqueIndex" json:"name"`
	Slug        string     `gorm:"uniqueIndex" json:"slug"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `gorm:"type:uuid" json:"parent_id"`
	Parent      *Category  `json:"parent,omitempty"`
	Children    []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	Products    []Product  `json:"products,omitempty"`
}

// BeforeSave derives the slug from the name when none is set.
func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = utils.Slugify(c.Name)
	}
	return nil
}
