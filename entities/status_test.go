package entities

import (
	"encoding/json"
	"testing"
)

func TestParseProjectorStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    ProjectorStatus
		wantErr bool
	}{
		{in: "ON", want: ProjectorOn},
		{in: " off ", want: ProjectorOff},
		{in: "Encendido", want: ProjectorOn},
		{in: "APAGADO", want: ProjectorOff},
		{in: "turning_on", want: ProjectorTurningOn},
		{in: "TURNING_OFF", want: ProjectorTurningOff},
		{in: "standby", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseProjectorStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProjectorStatus(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProjectorStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseEventStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    EventStatus
		wantErr bool
	}{
		{in: "PENDING", want: EventPending},
		{in: "PENDIENTE", want: EventPending},
		{in: "enviado", want: EventServed},
		{in: "Realizado", want: EventExecuted},
		{in: "CANCELADO", want: EventCanceled},
		{in: "error", want: EventError},
		{in: "DONE", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseEventStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEventStatus(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEventStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusBoundaries(t *testing.T) {
	var p Projector
	if err := json.Unmarshal([]byte(`{"status":"Apagado"}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Status != ProjectorOff {
		t.Errorf("status = %q, want OFF", p.Status)
	}
	if err := json.Unmarshal([]byte(`"SLEEPING"`), &p.Status); err == nil {
		t.Error("unknown projector status should not unmarshal")
	}

	var ev EventStatus
	if err := ev.Scan([]byte("ENVIADO")); err != nil || ev != EventServed {
		t.Errorf("Scan = %q, %v", ev, err)
	}
	if _, err := EventStatus("DONE").Value(); err == nil {
		t.Error("invalid event status should not be written")
	}
	if v, err := ProjectorTurningOn.Value(); err != nil || v != "TURNING_ON" {
		t.Errorf("Value = %v, %v", v, err)
	}
}
