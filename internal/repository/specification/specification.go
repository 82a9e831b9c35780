package specification

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

func ApplyAll(db *gorm.DB, specs ...Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

type ByID struct {
	ID string
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// ByOwner scopes a query to one owner's documents.
type ByOwner struct {
	OwnerID string
}

func (s ByOwner) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.OwnerID)
}

type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("email = ?", strings.ToLower(s.Email))
}
