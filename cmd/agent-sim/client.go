package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type servedEvent struct {
	EventID            uint   `json:"eventId"`
	CommandInstruction string `json:"commandInstruction"`
	ActionStatus       string `json:"actionStatus"`
}

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{base: base, http: &http.Client{Timeout: 10 * time.Second}}
}

// poll asks for the next event of classroom. A nil event means the queue is empty.
func (c *apiClient) poll(classroom, lampCode string) (*servedEvent, error) {
	q := url.Values{}
	q.Set("projectorClassroom", classroom)
	q.Set("projectorStatus", lampCode)

	resp, err := c.http.Get(c.base + "/projectors/server-events?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("poll failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
	default:
		return nil, apiError(resp)
	}

	var ev servedEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, fmt.Errorf("invalid poll response: %w", err)
	}
	return &ev, nil
}

// report sends the response code the projector answered for event id.
func (c *apiClient) report(classroom string, id uint, rarc string) error {
	q := url.Values{}
	q.Set("eventId", strconv.FormatUint(uint64(id), 10))
	q.Set("rarc", rarc)
	q.Set("classroom", classroom)

	req, err := http.NewRequest(http.MethodPut, c.base+"/projectors/server-events?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body struct {
		ID      int    `json:"id"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
}
