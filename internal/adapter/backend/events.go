package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"entrepreneursim/internal/domain"
)

// EventStream is an open push channel from the backend
type EventStream struct {
	body   io.ReadCloser
	frames *frameReader
}

// Events opens the backend's push channel at GET /api/events.
// The stream lives until ctx is cancelled, the server closes it or Close is called.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	return &EventStream{
		body:   resp.Body,
		frames: newFrameReader(resp.Body),
	}, nil
}

// Next blocks until the next event arrives. It returns io.EOF when the server ends the stream.
// Frames without an event name are delivered as "message".
func (s *EventStream) Next() (domain.Event, error) {
	f, err := s.frames.next()
	if err != nil {
		return domain.Event{}, err
	}

	name := f.event
	if name == "" {
		name = "message"
	}

	data := json.RawMessage(f.data)
	if !json.Valid(data) {
		quoted, _ := json.Marshal(f.data)
		data = quoted
	}
	return domain.Event{Name: name, Data: data}, nil
}

// Close releases the underlying connection
func (s *EventStream) Close() error {
	return s.body.Close()
}
