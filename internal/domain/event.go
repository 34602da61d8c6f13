package domain

import "encoding/json"

// Push event names delivered by the backend
const (
	EventConnect              = "connect"
	EventNewBusiness          = "new_business"
	EventTransactionCompleted = "transaction_completed"
	EventMarketUpdate         = "market_update"
)

// KnownEvents lists every event a page may subscribe to
var KnownEvents = []string{
	EventConnect,
	EventNewBusiness,
	EventTransactionCompleted,
	EventMarketUpdate,
}

// IsKnownEvent reports whether name is one of KnownEvents
func IsKnownEvent(name string) bool {
	for _, e := range KnownEvents {
		if e == name {
			return true
		}
	}
	return false
}

// Event is one named notification. Data mirrors the matching REST resource.
type Event struct {
	Name string
	Data json.RawMessage
}
