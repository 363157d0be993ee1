// Package notify delivers best-effort real-time events to users' live
// websocket sessions, optionally fanned out across instances through Redis.
package notify

import (
	"encoding/json"
	"fmt"
)

// EventNewFollower is emitted to a user when someone starts following them.
const EventNewFollower = "new_follower"

// Event is a named notification with a JSON payload.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent encodes payload into an Event.
func NewEvent(name string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, Payload: raw}, nil
}

// NewFollower is the payload of EventNewFollower.
type NewFollower struct {
	FollowerID       int64  `json:"followerId"`
	FollowerUsername string `json:"followerUsername"`
}
