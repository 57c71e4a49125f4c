package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestClientPoll(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantNil bool
		wantErr string
	}{
		{name: "served", status: http.StatusOK, body: `{"eventId":7,"commandInstruction":"%1POWR 1","actionStatus":"SERVED"}`},
		{name: "empty queue", status: http.StatusNoContent, wantNil: true},
		{name: "unknown classroom", status: http.StatusNotFound, body: `{"id":494,"error":"NOT_FOUND","message":"projector Z9 not found"}`, wantErr: "projector Z9 not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/projectors/server-events" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if got := r.URL.Query().Get("projectorStatus"); got != "%1POWR=0" {
					t.Errorf("projectorStatus = %q", got)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			ev, err := newAPIClient(srv.URL).poll("A1", "%1POWR=0")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantNil {
				if ev != nil {
					t.Fatalf("event = %+v, want nil", ev)
				}
				return
			}
			if ev == nil || ev.EventID != 7 || ev.ActionStatus != "SERVED" || ev.CommandInstruction != "%1POWR 1" {
				t.Errorf("event = %+v", ev)
			}
		})
	}
}

func TestClientReport(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newAPIClient(srv.URL).report("A1", 12, "%1POWR=OK"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"eventId=12", "classroom=A1", "rarc=%251POWR%3DOK"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestModelKeysSwitchCodes(t *testing.T) {
	m := newModel(options{
		server: "http://x", classroom: "A1",
		lampOnCode: "on", lampOffCode: "off", ackCode: "ok", errCode: "bad",
	})
	if m.lampCode() != "off" || m.replyCode() != "ok" {
		t.Fatalf("initial codes = %s/%s", m.lampCode(), m.replyCode())
	}

	for _, key := range []string{"o", "e"} {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		m = next.(model)
	}
	if m.lampCode() != "on" || m.replyCode() != "bad" {
		t.Errorf("codes after keys = %s/%s", m.lampCode(), m.replyCode())
	}
}
