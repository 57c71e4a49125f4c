package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"projector-server/confs"
	"projector-server/entities"
	"projector-server/repositories"
	"projector-server/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	model     = "EPSON EB-X41"
	classroom = "0.12"
)

func testConfig() *confs.Config {
	return &confs.Config{
		Server:   confs.ServerConfig{Port: 8080, ShutdownTimeout: time.Second, CORSOrigins: []string{"*"}},
		Database: confs.DatabaseConfig{Driver: "memory"},
		Auth:     confs.AuthConfig{JWTSecretEnv: "PROJECTORS_TEST_JWT", TokenTTL: time.Hour, Issuer: "projector-server"},
		Lifecycle: confs.LifecycleConfig{
			TurnOn: "TURN_ON", TurnOff: "TURN_OFF", LampOn: "LAMP_ON", LampOff: "LAMP_OFF",
			Ack: "ACK", Err: "ERR", StatusInquiry: "STATUS_INQUIRY",
		},
		Catalog: confs.CatalogConfig{CacheTTL: time.Minute},
		Log:     confs.LogConfig{Level: "info"},
	}
}

func seededStore(t *testing.T) *repositories.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	for _, c := range []entities.Command{
		{ModelName: model, Action: "TURN_ON", Instruction: "%1POWR 1"},
		{ModelName: model, Action: "TURN_OFF", Instruction: "%1POWR 0"},
		{ModelName: model, Action: "LAMP_ON", Instruction: "%1POWR=1"},
		{ModelName: model, Action: "LAMP_OFF", Instruction: "%1POWR=0"},
		{ModelName: model, Action: "ACK", Instruction: "%1POWR=OK"},
		{ModelName: model, Action: "ERR", Instruction: "%1POWR=ERR3"},
		{ModelName: model, Action: "STATUS_INQUIRY", Instruction: "%1POWR ?"},
	} {
		c := c
		if err := store.Commands().Create(ctx, &c); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Projectors().Create(ctx, &entities.Projector{Classroom: classroom, Floor: "0", Model: model}); err != nil {
		t.Fatal(err)
	}
	return store
}

func newTestServer(t *testing.T, cfg *confs.Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(cfg, seededStore(t), zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestAgentRoundTrip(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	w := do(t, h, http.MethodPost, "/projectors/server-events-batch",
		`{"action":"TURN_ON","projectorList":[{"model":"EPSON EB-X41","classroom":"0.12"}]}`,
		map[string]string{"X-User": "ana"})
	if w.Code != http.StatusCreated {
		t.Fatalf("batch status = %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["status"] != "SUCCESS" || resp["message"] != "1 events successfully created." {
		t.Errorf("batch response = %v", resp)
	}

	w = do(t, h, http.MethodGet, "/projectors/server-events?projectorClassroom=0.12&projectorStatus=%251POWR%3D1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("poll status = %d: %s", w.Code, w.Body.String())
	}
	var served struct {
		EventID            uint   `json:"eventId"`
		CommandInstruction string `json:"commandInstruction"`
		ActionStatus       string `json:"actionStatus"`
	}
	decode(t, w, &served)
	if served.EventID != 1 || served.CommandInstruction != "%1POWR 1" || served.ActionStatus != "SERVED" {
		t.Fatalf("served = %+v", served)
	}

	w = do(t, h, http.MethodGet, "/projectors/server-events?projectorClassroom=0.12&projectorStatus=%251POWR%3D1", "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("second poll status = %d, want 204", w.Code)
	}

	w = do(t, h, http.MethodPut, "/projectors/server-events?eventId=1&rarc=%251POWR%3DOK&classroom=0.12", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &resp)
	if resp["message"] != "Event with ID 1 successfully updated from SERVED to EXECUTED" {
		t.Errorf("update message = %q", resp["message"])
	}

	w = do(t, h, http.MethodPost, "/projectors/server-events?page=0&size=5", `{"user":"ana"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d: %s", w.Code, w.Body.String())
	}
	var page struct {
		Content []struct {
			ID     uint   `json:"event_id"`
			Status string `json:"action_status"`
			User   string `json:"user"`
		} `json:"content"`
		TotalElements int64 `json:"totalElements"`
	}
	decode(t, w, &page)
	if page.TotalElements != 1 || page.Content[0].Status != "EXECUTED" || page.Content[0].User != "ana" {
		t.Errorf("search page = %+v", page)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		id     int
	}{
		{"non numeric event id", http.MethodPut, "/projectors/server-events?eventId=abc&rarc=x&classroom=0.12", "", http.StatusBadRequest, 505},
		{"unknown projector", http.MethodGet, "/projectors/server-events?projectorClassroom=9.99&projectorStatus=x", "", http.StatusNotFound, 494},
		{"unknown response code", http.MethodGet, "/projectors/server-events?projectorClassroom=0.12&projectorStatus=nope", "", http.StatusNotFound, 404},
		{"not a lamp report", http.MethodGet, "/projectors/server-events?projectorClassroom=0.12&projectorStatus=%251POWR%3DOK", "", http.StatusUnprocessableEntity, 499},
		{"empty projector list", http.MethodPost, "/projectors/server-events-batch", `{"action":"TURN_ON","projectorList":[]}`, http.StatusBadRequest, 505},
		{"malformed batch", http.MethodPost, "/projectors/server-events-batch", `{"action":`, http.StatusBadRequest, 505},
		{"duplicate command", http.MethodPost, "/projectors/commands", `{"modelName":"EPSON EB-X41","action":"ACK","command":"x"}`, http.StatusConflict, 409},
		{"unknown event status filter", http.MethodPost, "/projectors/server-events", `{"actionStatus":"LOST"}`, http.StatusBadRequest, 505},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, tc.method, tc.target, tc.body, nil)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.status, w.Body.String())
			}
			var body struct {
				ID      int    `json:"id"`
				Error   string `json:"error"`
				Message string `json:"message"`
			}
			decode(t, w, &body)
			if body.ID != tc.id || body.Message == "" {
				t.Errorf("body = %+v, want id %d", body, tc.id)
			}
		})
	}
}

func TestCommandDeleteConflict(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	w := do(t, h, http.MethodPost, "/projectors/server-events-batch",
		`{"action":"TURN_ON","projectorList":[{"classroom":"0.12"}]}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("batch status = %d", w.Code)
	}
	w = do(t, h, http.MethodDelete, "/projectors/commands?modelName=EPSON%20EB-X41&action=TURN_ON", "", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("delete status = %d, want 409: %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodDelete, "/projectors/commands?modelName=EPSON%20EB-X41&action=TURN_OFF", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete unreferenced status = %d: %s", w.Code, w.Body.String())
	}
}

func TestCatalogEndpoints(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	w := do(t, h, http.MethodGet, "/projectors/actions", "", nil)
	var actions []string
	decode(t, w, &actions)
	if len(actions) != 2 || actions[0] != "TURN_OFF" || actions[1] != "TURN_ON" {
		t.Errorf("actions = %v", actions)
	}

	w = do(t, h, http.MethodGet, "/projectors/config-params?projectorClassroom=0.12", "", nil)
	var cmd entities.Command
	decode(t, w, &cmd)
	if cmd.Action != "STATUS_INQUIRY" || cmd.Instruction != "%1POWR ?" {
		t.Errorf("config params = %+v", cmd)
	}

	w = do(t, h, http.MethodGet, "/projectors/event-states", "", nil)
	var states []string
	decode(t, w, &states)
	if len(states) != 5 || states[0] != "PENDING" {
		t.Errorf("event states = %v", states)
	}

	w = do(t, h, http.MethodGet, "/projectors/classrooms?floor=7", "", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("classrooms on empty floor = %d, want 204", w.Code)
	}

	w = do(t, h, http.MethodGet, "/projectors/general-overview", "", nil)
	var overview map[string]int64
	decode(t, w, &overview)
	if overview["numberOfCommands"] != 7 || overview["numberOfProjectors"] != 1 {
		t.Errorf("overview = %v", overview)
	}

	w = do(t, h, http.MethodGet, "/projectors/catalog-cache/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("cache stats = %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/projectors/catalog-cache/flush", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("cache flush = %d", w.Code)
	}
}

func TestProjectorAdmin(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	w := do(t, h, http.MethodPost, "/projectors/projectors", `{"classroom":"1.05","floor":"1","model":"EPSON EB-X41","status":"Encendido"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	var p entities.Projector
	decode(t, w, &p)
	if p.Status != entities.ProjectorOn {
		t.Errorf("legacy status not parsed: %s", p.Status)
	}

	w = do(t, h, http.MethodGet, "/projectors/projectors?floor=1", "", nil)
	var list []entities.Projector
	decode(t, w, &list)
	if len(list) != 1 || list[0].Classroom != "1.05" {
		t.Errorf("list = %+v", list)
	}

	w = do(t, h, http.MethodDelete, "/projectors/projectors?classroom=1.05", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", w.Code, w.Body.String())
	}
	w = do(t, h, http.MethodDelete, "/projectors/projectors-all", "", nil)
	var resp map[string]string
	decode(t, w, &resp)
	if resp["message"] != "Successfully removed 1 projectors." {
		t.Errorf("delete all = %v", resp)
	}
}

func TestAuthEnabled(t *testing.T) {
	t.Setenv("PROJECTORS_TEST_JWT", "0123456789abcdef0123456789abcdef")
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.BootstrapEmail = "ana@school.org"
	cfg.Auth.BootstrapPassword = "secret"

	srv := newTestServer(t, cfg)
	if err := srv.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/projectors/floors", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated request = %d, want 401", w.Code)
	}

	w = do(t, h, http.MethodPost, "/auth/login", `{"email":"ana@school.org","password":"wrong"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", w.Code)
	}

	w = do(t, h, http.MethodPost, "/auth/login", `{"email":"ana@school.org","password":"secret"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", w.Code, w.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &tok)

	bearer := map[string]string{"Authorization": "Bearer " + tok.AccessToken}
	w = do(t, h, http.MethodPost, "/projectors/server-events-batch",
		`{"action":"TURN_ON","projectorList":[{"classroom":"0.12"}]}`, bearer)
	if w.Code != http.StatusCreated {
		t.Fatalf("authenticated batch = %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodPost, "/projectors/server-events", `{"user":"ana@school.org"}`, bearer)
	var page struct {
		TotalElements int64 `json:"totalElements"`
	}
	decode(t, w, &page)
	if page.TotalElements != 1 {
		t.Errorf("event not recorded for the token's user: %s", w.Body.String())
	}

	// Agent routes stay open.
	w = do(t, h, http.MethodGet, "/projectors/config-params?projectorClassroom=0.12", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("agent route = %d, want 200", w.Code)
	}
}

func TestAgentWebsocketNotification(t *testing.T) {
	srv := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/projectors/agents/ws?classroom=0.12"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for !srv.manager.IsConnected(classroom) {
		if time.Now().After(deadline) {
			t.Fatal("agent never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(ts.URL+"/projectors/server-events-batch", "application/json",
		strings.NewReader(`{"action":"TURN_ON","projectorList":[{"classroom":"0.12"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("batch = %d", resp.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ws.PendingMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if msg.Type != "events_pending" || msg.Classroom != classroom || msg.Count != 1 {
		t.Errorf("notification = %+v", msg)
	}

	r, err := http.Get(ts.URL + "/projectors/agents/connected")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()
	var connected struct {
		Classrooms []string `json:"classrooms"`
		Count      int      `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&connected); err != nil {
		t.Fatal(err)
	}
	if connected.Count != 1 || connected.Classrooms[0] != classroom {
		t.Errorf("connected = %+v", connected)
	}
}

func TestAgentWebsocketUnknownClassroom(t *testing.T) {
	srv := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/projectors/agents/ws?classroom=9.99"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial should fail for an unknown classroom")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %v", resp)
	}
}
