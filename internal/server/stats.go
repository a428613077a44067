package server

import "sync/atomic"

// Stats は接続処理の集計
type Stats struct {
	connections     atomic.Int64
	acceptErrors    atomic.Int64
	served          atomic.Int64
	notFound        atomic.Int64
	malformed       atomic.Int64
	readErrors      atomic.Int64
	writeErrors     atomic.Int64
	sidecarsCreated atomic.Int64
	sidecarsReused  atomic.Int64
	compressErrors  atomic.Int64
	bytesSent       atomic.Int64
}

// StatsSnapshot はある時点の集計値
type StatsSnapshot struct {
	Connections     int64 `json:"connections"`
	AcceptErrors    int64 `json:"accept_errors"`
	Served          int64 `json:"served"`
	NotFound        int64 `json:"not_found"`
	Malformed       int64 `json:"malformed"`
	ReadErrors      int64 `json:"read_errors"`
	WriteErrors     int64 `json:"write_errors"`
	SidecarsCreated int64 `json:"sidecars_created"`
	SidecarsReused  int64 `json:"sidecars_reused"`
	CompressErrors  int64 `json:"compress_errors"`
	BytesSent       int64 `json:"bytes_sent"`
}

// Snapshot は現在の集計値を返す
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Connections:     s.connections.Load(),
		AcceptErrors:    s.acceptErrors.Load(),
		Served:          s.served.Load(),
		NotFound:        s.notFound.Load(),
		Malformed:       s.malformed.Load(),
		ReadErrors:      s.readErrors.Load(),
		WriteErrors:     s.writeErrors.Load(),
		SidecarsCreated: s.sidecarsCreated.Load(),
		SidecarsReused:  s.sidecarsReused.Load(),
		CompressErrors:  s.compressErrors.Load(),
		BytesSent:       s.bytesSent.Load(),
	}
}
