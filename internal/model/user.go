package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated operator. Department doubles as the default view
// the user works from; Role decides lock bypass and admin routes.
type User struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email             string     `gorm:"uniqueIndex;not null"`
	Name              string     `gorm:"not null"`
	PasswordHash      string     `gorm:"not null"`
	Role              Role       `gorm:"type:varchar(20);not null"`
	Department        Department `gorm:"type:varchar(20);not null"`
	Active            bool       `gorm:"not null;default:true"`
	LastLoginAt       *time.Time
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (User) TableName() string { return "users" }
