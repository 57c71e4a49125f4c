package usecases

import (
	"strings"

	"projector-server/confs"
	"projector-server/entities"
)

// LifecycleConfig names the catalog actions with lifecycle meaning.
// Comparisons against these names are case-insensitive.
type LifecycleConfig struct {
	TurnOn        string
	TurnOff       string
	LampOn        string
	LampOff       string
	Ack           string
	Err           string
	StatusInquiry string
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		TurnOn:        "TURN_ON",
		TurnOff:       "TURN_OFF",
		LampOn:        "LAMP_ON",
		LampOff:       "LAMP_OFF",
		Ack:           "ACK",
		Err:           "ERR",
		StatusInquiry: "STATUS_INQUIRY",
	}
}

// LifecycleFromConf fills blanks in c with the defaults.
func LifecycleFromConf(c confs.LifecycleConfig) LifecycleConfig {
	d := DefaultLifecycleConfig()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	}
	return LifecycleConfig{
		TurnOn:        pick(c.TurnOn, d.TurnOn),
		TurnOff:       pick(c.TurnOff, d.TurnOff),
		LampOn:        pick(c.LampOn, d.LampOn),
		LampOff:       pick(c.LampOff, d.LampOff),
		Ack:           pick(c.Ack, d.Ack),
		Err:           pick(c.Err, d.Err),
		StatusInquiry: pick(c.StatusInquiry, d.StatusInquiry),
	}
}

// ProtocolActions are exchanged with agents only and never offered to operators.
func (c LifecycleConfig) ProtocolActions() []string {
	return []string{c.Ack, c.Err, c.LampOn, c.LampOff, c.StatusInquiry}
}

func (c LifecycleConfig) IsProtocolAction(action string) bool {
	for _, a := range c.ProtocolActions() {
		if strings.EqualFold(a, action) {
			return true
		}
	}
	return false
}

// LifecyclePolicy holds the pure transition rules of the event lifecycle.
type LifecyclePolicy struct {
	cfg LifecycleConfig
}

func NewLifecyclePolicy(cfg LifecycleConfig) LifecyclePolicy {
	return LifecyclePolicy{cfg: cfg}
}

func (p LifecyclePolicy) Config() LifecycleConfig { return p.cfg }

// Admit decides the status of a new event for action given the projector's
// current status, along with the projector status that follows.
func (p LifecyclePolicy) Admit(current entities.ProjectorStatus, action string) (entities.EventStatus, entities.ProjectorStatus) {
	turnOn := strings.EqualFold(action, p.cfg.TurnOn)
	turnOff := strings.EqualFold(action, p.cfg.TurnOff)

	switch {
	case current.PoweredOrPoweringOn() && turnOn:
		return entities.EventExecuted, current
	case current.PoweredOrPoweringOn() && turnOff:
		return entities.EventPending, entities.ProjectorTurningOff
	case current.OffOrPoweringOff() && turnOn:
		return entities.EventPending, entities.ProjectorTurningOn
	case current.OffOrPoweringOff() && turnOff:
		return entities.EventExecuted, current
	}
	return entities.EventPending, current
}

// LampStatus maps a lamp report action to the projector status it proves.
// ok is false for any other action.
func (p LifecyclePolicy) LampStatus(action string) (status entities.ProjectorStatus, ok bool) {
	switch {
	case strings.EqualFold(action, p.cfg.LampOn):
		return entities.ProjectorOn, true
	case strings.EqualFold(action, p.cfg.LampOff):
		return entities.ProjectorOff, true
	}
	return "", false
}

// Outcome maps the action of an agent response to the final event status.
func (p LifecyclePolicy) Outcome(action string) entities.EventStatus {
	if strings.EqualFold(action, p.cfg.Ack) {
		return entities.EventExecuted
	}
	return entities.EventError
}
