package webhook

import (
	"time"

	"github.com/saturnino-fabrica-de-software/siamese/internal/ws"
)

// Endpoint receives signed event deliveries
type Endpoint struct {
	URL    string
	Secret string
	// Events filters the event types delivered; empty delivers all
	Events []ws.EventType
}

func (e Endpoint) wants(eventType ws.EventType) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, t := range e.Events {
		if t == eventType {
			return true
		}
	}
	return false
}

type EventPayload struct {
	Type       ws.EventType `json:"type"`
	Classifier string       `json:"classifier"`
	Data       any          `json:"data"`
	Timestamp  time.Time    `json:"timestamp"`
}

type job struct {
	eventType ws.EventType
	payload   []byte
	attempts  int
}
