package ws

import "time"

type EventType string

const (
	EventClassifierFitted  EventType = "classifier.fitted"
	EventClassifierDeleted EventType = "classifier.deleted"
	EventDecision          EventType = "decision.made"
)

// AllClassifiers subscribes a client to the events of every classifier
const AllClassifiers = "*"

type Event struct {
	Classifier string    `json:"classifier"`
	Type       EventType `json:"type"`
	Data       any       `json:"data"`
	Timestamp  time.Time `json:"timestamp"`
}
