package telemetry

import (
	"encoding/json"
)

const (
	hubName              = "Telemetry"
	methodFastestLap     = "FastestLapPosition"
	methodPosition       = "position"
	fastestLapInvocation = "1"
)

// hubMessage represents a websocket message from the telemetry service. It comes in two varieties:
// change messages carrying a batch of hub invocations (M), and the completion of a client
// invocation carrying either its result (R) or an error (E).
type hubMessage struct {
	ChangeSetID  string          `json:"C"`
	Messages     []invocation    `json:"M"`
	InvocationID string          `json:"I"`
	Result       json.RawMessage `json:"R"`
	Error        string          `json:"E"`
}

// invocation is a single hub method call; the server uses it to stream position samples and the
// client uses it to request a trace.
type invocation struct {
	Hub          string            `json:"H"`
	Method       string            `json:"M"`
	Arguments    []json.RawMessage `json:"A"`
	InvocationID string            `json:"I,omitempty"`
}

// positionSample is a car position on the circuit map. Coordinates are in the service's circuit
// units; samples with a missing coordinate are skipped.
type positionSample struct {
	X *float64 `json:"X"`
	Y *float64 `json:"Y"`
	Z *float64 `json:"Z"`
}

// lapSummary is the result of a FastestLapPosition invocation and describes the lap the samples
// belong to.
type lapSummary struct {
	Driver  *string  `json:"Driver"`
	LapTime *float64 `json:"LapTime"`
}

// negotiateResponse represents the response body of the negotiate API.
type negotiateResponse struct {
	Url               string  `json:"Url"`
	ConnectionToken   string  `json:"ConnectionToken"`
	ConnectionId      string  `json:"ConnectionId"`
	KeepAliveTimeout  float64 `json:"KeepAliveTimeout"`
	DisconnectTimeout float64 `json:"DisconnectTimeout"`
	TryWebSockets     bool    `json:"TryWebSockets"`
	ProtocolVersion   string  `json:"ProtocolVersion"`
}
