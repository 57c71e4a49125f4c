package entities

import (
	"time"

	"gorm.io/gorm"
)

// Projector is one physical projector, identified by the classroom it hangs in.
type Projector struct {
	Classroom string          `gorm:"primaryKey;type:varchar(64)" json:"classroom"`
	Floor     string          `gorm:"index;type:varchar(64)" json:"floor"`
	Model     string          `gorm:"index;type:varchar(128);not null" json:"model"`
	Status    ProjectorStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (p *Projector) BeforeCreate(tx *gorm.DB) (err error) {
	if p.Status == "" {
		p.Status = ProjectorOff
	}
	return nil
}
