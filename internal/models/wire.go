package models

import "encoding/json"

// EventVideoData names the stream event carrying frames, counts and status.
const EventVideoData = "video_data"

// Envelope wraps a named event on the websocket wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewVideoDataEnvelope marshals a VideoEvent into a wire envelope.
func NewVideoDataEnvelope(ev VideoEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: EventVideoData, Data: data})
}
