package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/middleware"
	"entrepreneursim/internal/notifier"
)

const (
	keepAliveInterval = 15 * time.Second
	listenerBuffer    = 16
)

// EventsHandler relays backend push events to browsers and serves the balance poll
type EventsHandler struct {
	notifier  *notifier.Notifier
	keepAlive time.Duration
	log       *logrus.Entry

	closing   chan struct{}
	closeOnce sync.Once
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(n *notifier.Notifier, log *logrus.Entry) *EventsHandler {
	return &EventsHandler{
		notifier:  n,
		keepAlive: keepAliveInterval,
		log:       log.WithField("component", "events"),
		closing:   make(chan struct{}),
	}
}

// Close ends every open event stream and any opened later.
// http.Server.Shutdown does not cancel active requests; register Close with RegisterOnShutdown.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// subscribedEvents parses ?events=a,b into known event names; none means all
func subscribedEvents(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if domain.IsKnownEvent(name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return domain.KnownEvents
	}
	return names
}

// GET /events - Server-sent event stream of the named push events
func (h *EventsHandler) HandleEvents(c echo.Context) error {
	names := subscribedEvents(c.QueryParam("events"))
	events, cancel := h.notifier.Subscribe(listenerBuffer, names...)
	defer cancel()

	w := c.Response()
	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.WithError(err).Debug("Could not clear write deadline")
	}

	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.closing:
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(w, evt); err != nil {
				h.log.WithError(err).Debug("Browser left the event stream")
				return nil
			}
			w.Flush()
		}
	}
}

// writeEvent frames evt for the browser's EventSource
func writeEvent(w io.Writer, evt domain.Event) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", evt.Name)
	for _, line := range strings.Split(string(evt.Data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// GET /fragments/balance - Fresh balance for the navigation bar
func (h *EventsHandler) HandleBalanceFragment(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	balance, err := api.Balance(c.Request().Context())
	if err != nil {
		if sessionRejected(c, s, err) {
			return middleware.Redirect(c, domain.LoginPath)
		}
		h.log.WithError(err).Debug("Balance poll failed, showing cached balance")
		return fragment(c, "balance", s.User())
	}

	s.UpdateBalance(balance)
	return fragment(c, "balance", s.User())
}
