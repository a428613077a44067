// Package generated は管理APIのOpenAPI定義から起こした型とルーティングを提供する
package generated

import (
	"time"
)

// Defines values for HealthResponseStatus.
const (
	Healthy HealthResponseStatus = "healthy"
)

// Defines values for StatusResponseStatus.
const (
	Running StatusResponseStatus = "running"
	Stopped StatusResponseStatus = "stopped"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FeatureInfo defines model for FeatureInfo.
type FeatureInfo struct {
	CompressOnFly            bool `json:"compress_on_fly"`
	SendCompressedIfAccepted bool `json:"send_compressed_if_accepted"`
	ShowDirectoryListing     bool `json:"show_directory_listing"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// PoolInfo defines model for PoolInfo.
type PoolInfo struct {
	Busy      int64 `json:"busy"`
	Completed int64 `json:"completed"`
	Panics    int64 `json:"panics"`
	QueueSize int   `json:"queue_size"`
	Queued    int   `json:"queued"`
	Workers   int   `json:"workers"`
}

// ServerInfo defines model for ServerInfo.
type ServerInfo struct {
	Address   string    `json:"address"`
	Root      string    `json:"root"`
	StartedAt time.Time `json:"started_at"`
}

// StatsInfo defines model for StatsInfo.
type StatsInfo struct {
	AcceptErrors    int64 `json:"accept_errors"`
	BytesSent       int64 `json:"bytes_sent"`
	CompressErrors  int64 `json:"compress_errors"`
	Connections     int64 `json:"connections"`
	Malformed       int64 `json:"malformed"`
	NotFound        int64 `json:"not_found"`
	ReadErrors      int64 `json:"read_errors"`
	Served          int64 `json:"served"`
	SidecarsCreated int64 `json:"sidecars_created"`
	SidecarsReused  int64 `json:"sidecars_reused"`
	WriteErrors     int64 `json:"write_errors"`
}

// StatusResponse defines model for StatusResponse.
type StatusResponse struct {
	Features  FeatureInfo          `json:"features"`
	Pool      PoolInfo             `json:"pool"`
	Server    ServerInfo           `json:"server"`
	Stats     StatsInfo            `json:"stats"`
	Status    StatusResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

// StatusResponseStatus defines model for StatusResponse.Status.
type StatusResponseStatus string
