package model

import "time"

// RecordRow is the relational envelope of a ProcessRecord. Payload holds the
// flat JSON document; the other columns exist for indexing and listing.
type RecordRow struct {
	ID            string `gorm:"primaryKey;type:varchar(64)"`
	PVCode        string `gorm:"index;not null"`
	Client        string
	GeneralStatus string `gorm:"type:varchar(20);index;not null"`
	Version       int64  `gorm:"not null;default:0"`
	Payload       string `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (RecordRow) TableName() string { return "process_records" }

// AuditEventRow mirrors every AuditEvent into an append-only table so the
// trail can be searched across records. Rows are never updated or deleted
// except when the whole record is wiped.
type AuditEventRow struct {
	ID              string `gorm:"primaryKey;type:varchar(64)"`
	RecordID        string `gorm:"type:varchar(64);index;not null"`
	PVCode          string
	AtEpochMs       int64  `gorm:"index;not null"`
	ActorName       string `gorm:"not null"`
	ActorDepartment string `gorm:"type:varchar(20)"`
	Type            string `gorm:"type:varchar(30);index;not null"`
	Stage           string `gorm:"type:varchar(20)"`
	Summary         string
	Meta            *string `gorm:"type:jsonb"`
	CreatedAt       time.Time
}

func (AuditEventRow) TableName() string { return "audit_events" }
