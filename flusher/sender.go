//go:generate mockgen -destination=./sender_mock.go -package=flusher -source=./sender.go Sender
package flusher

import (
	"context"
	"encoding/json"
)

// Sender transmits one batch request to the remote collector. Send semantics
// are at-most-once: implementations must not retry internally, a failed batch
// is picked up again by a future flush cycle.
type Sender interface {
	Send(ctx context.Context, request *BatchRequest) error
}

// BatchRequest is one bounded group of events sent in a single network
// request, together with the metadata of the gauge and session they belong to.
type BatchRequest struct {
	GaugeID    string          `json:"gaugeId"`
	SessionID  string          `json:"sessionId"`
	AppVersion string          `json:"appVersion"`
	OSVersion  string          `json:"osVersion"`
	SDKVersion string          `json:"sdkVersion"`
	Device     DeviceInfo      `json:"device"`
	UserInfo   json.RawMessage `json:"userInfo,omitempty"`
	Events     []EventPayload  `json:"events"`
}

// DeviceInfo is static device metadata injected into every batch request.
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	OSName       string `json:"osName,omitempty"`
}

// EventPayload is the wire-level shape of a single event.
type EventPayload struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  int64             `json:"timestamp"` // unix milliseconds
}
