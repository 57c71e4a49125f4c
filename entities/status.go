package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ProjectorStatus is the power state of a projector as last known by the server.
type ProjectorStatus string

const (
	ProjectorOn         ProjectorStatus = "ON"
	ProjectorOff        ProjectorStatus = "OFF"
	ProjectorTurningOn  ProjectorStatus = "TURNING_ON"
	ProjectorTurningOff ProjectorStatus = "TURNING_OFF"
)

var projectorStatusAliases = map[string]ProjectorStatus{
	"on":          ProjectorOn,
	"encendido":   ProjectorOn,
	"off":         ProjectorOff,
	"apagado":     ProjectorOff,
	"turning_on":  ProjectorTurningOn,
	"encendiendo": ProjectorTurningOn,
	"turning_off": ProjectorTurningOff,
	"apagando":    ProjectorTurningOff,
}

// ParseProjectorStatus accepts the canonical names and the legacy spanish
// literals, case-insensitively.
func ParseProjectorStatus(s string) (ProjectorStatus, error) {
	if st, ok := projectorStatusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown projector status %q", s)
}

func (s ProjectorStatus) Valid() bool {
	switch s {
	case ProjectorOn, ProjectorOff, ProjectorTurningOn, ProjectorTurningOff:
		return true
	}
	return false
}

// PoweredOrPoweringOn reports whether the projector is on or on its way there.
func (s ProjectorStatus) PoweredOrPoweringOn() bool {
	return s == ProjectorOn || s == ProjectorTurningOn
}

// OffOrPoweringOff reports whether the projector is off or on its way there.
func (s ProjectorStatus) OffOrPoweringOff() bool {
	return s == ProjectorOff || s == ProjectorTurningOff
}

func (s *ProjectorStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	st, err := ParseProjectorStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s ProjectorStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid projector status %q", string(s))
	}
	return string(s), nil
}

func (s *ProjectorStatus) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	st, err := ParseProjectorStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// EventStatus is the lifecycle status of a server event.
type EventStatus string

const (
	EventPending  EventStatus = "PENDING"
	EventServed   EventStatus = "SERVED"
	EventExecuted EventStatus = "EXECUTED"
	EventCanceled EventStatus = "CANCELED"
	EventError    EventStatus = "ERROR"
)

// EventStatuses lists every recognised event status in lifecycle order.
var EventStatuses = []EventStatus{EventPending, EventServed, EventExecuted, EventCanceled, EventError}

var eventStatusAliases = map[string]EventStatus{
	"pending":   EventPending,
	"pendiente": EventPending,
	"served":    EventServed,
	"enviado":   EventServed,
	"executed":  EventExecuted,
	"realizado": EventExecuted,
	"canceled":  EventCanceled,
	"cancelled": EventCanceled,
	"cancelado": EventCanceled,
	"error":     EventError,
}

func ParseEventStatus(s string) (EventStatus, error) {
	if st, ok := eventStatusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

func (s EventStatus) Valid() bool {
	switch s {
	case EventPending, EventServed, EventExecuted, EventCanceled, EventError:
		return true
	}
	return false
}

func (s *EventStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	st, err := ParseEventStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s EventStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid event status %q", string(s))
	}
	return string(s), nil
}

func (s *EventStatus) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	st, err := ParseEventStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("status is null")
	}
	return "", fmt.Errorf("cannot scan %T into status", src)
}
