package entities

import (
	"time"

	"gorm.io/gorm"
)

// ServerEvent records one request to perform an action on a projector.
// Rows are never hard deleted: removing a projector soft deletes its events,
// which drops them from the agent queue while keeping the audit trail.
type ServerEvent struct {
	ID          uint           `json:"event_id" gorm:"primaryKey;autoIncrement"`
	ModelName   string         `json:"model_name" gorm:"type:varchar(128);not null;index:idx_event_command"`
	Action      string         `json:"action" gorm:"type:varchar(64);not null;index:idx_event_command"`
	Instruction string         `json:"command" gorm:"type:text"`
	Classroom   string         `json:"classroom" gorm:"type:varchar(64);not null;index:idx_event_queue,priority:1"`
	Floor       string         `json:"floor" gorm:"type:varchar(64)"`
	User        string         `json:"user" gorm:"column:requested_by;type:varchar(255)"`
	Status      EventStatus    `json:"action_status" gorm:"type:varchar(16);not null;index:idx_event_queue,priority:2;index"`
	CreatedAt   time.Time      `json:"date_time" gorm:"index:idx_event_queue,priority:3"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// SimplifiedServerEvent is what a polling agent receives.
type SimplifiedServerEvent struct {
	EventID            uint        `json:"eventId"`
	CommandInstruction string      `json:"commandInstruction"`
	ActionStatus       EventStatus `json:"actionStatus"`
}

func (e *ServerEvent) Simplified() SimplifiedServerEvent {
	return SimplifiedServerEvent{
		EventID:            e.ID,
		CommandInstruction: e.Instruction,
		ActionStatus:       e.Status,
	}
}
