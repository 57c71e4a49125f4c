package entities

import "time"

// Command is the literal instruction a projector model understands for an action.
type Command struct {
	ModelName   string    `json:"model_name" gorm:"primaryKey;type:varchar(128)"`
	Action      string    `json:"action" gorm:"primaryKey;type:varchar(64)"`
	Instruction string    `json:"command" gorm:"index:idx_command_model_instruction;type:text;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
