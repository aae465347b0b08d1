// Package mir is a small client for the MiR robot REST API (v2.0.0).
package mir

import (
	"fmt"
)

// Robot states used by the run/pause toggle.
const (
	StateReady = 3
	StatePause = 4
)

// APIVersionPath is prepended to every request path.
const APIVersionPath = "/api/v2.0.0"

// DefaultHost is the robot address on its own access point.
const DefaultHost = "mir.com"

// Status is the subset of GET /status the client needs.
type Status struct {
	StateID           int     `json:"state_id"`
	StateText         string  `json:"state_text"`
	ModeID            int     `json:"mode_id"`
	ModeText          string  `json:"mode_text"`
	BatteryPercentage float64 `json:"battery_percentage"`
	MissionText       string  `json:"mission_text"`
}

// Mode is the reduced GET /status payload returned by GetMode.
type Mode struct {
	ModeID   int    `json:"mode_id"`
	ModeText string `json:"mode_text"`
}

// StateChange is the PUT /status body.
type StateChange struct {
	StateID int `json:"state_id"`
}

// Response is the outcome of one API call. Data holds the body verbatim as a
// string for raw calls, and the decoded JSON otherwise.
type Response struct {
	Method     string      `json:"method"`
	Path       string      `json:"path"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mir api %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
