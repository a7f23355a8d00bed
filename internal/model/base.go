package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemActor is recorded as creator/updater when no authenticated principal is present
const SystemActor = "System"

// Base holds the identifier, timestamps and attribution shared by every entity
type Base struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime:false"`
	CreatedBy string     `json:"created_by" gorm:"type:varchar(255);not null"`
	UpdatedBy *string    `json:"updated_by,omitempty" gorm:"type:varchar(255)"`
}

// BeforeCreate assigns an identifier and creation attribution when the caller left them empty
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.CreatedBy == "" {
		b.CreatedBy = SystemActor
	}
	return nil
}

// Stamp sets creation attribution
func (b *Base) Stamp(actor string, now time.Time) {
	b.CreatedAt = now.UTC()
	b.CreatedBy = actorOrSystem(actor)
}

// Touch sets last-update attribution
func (b *Base) Touch(actor string, now time.Time) {
	t := now.UTC()
	a := actorOrSystem(actor)
	b.UpdatedAt = &t
	b.UpdatedBy = &a
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return SystemActor
	}
	return actor
}
