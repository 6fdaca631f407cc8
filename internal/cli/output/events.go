package output

// RunEvent is one JSON line emitted by `playlake run --json`.
type RunEvent struct {
	Event     string   `json:"event"`
	Timestamp string   `json:"timestamp"`
	RunID     string   `json:"run_id,omitempty"`
	Phase     string   `json:"phase,omitempty"`
	Stages    []string `json:"stages,omitempty"`

	Stage       string `json:"stage,omitempty"`
	Table       string `json:"table,omitempty"`
	Path        string `json:"path,omitempty"`
	Rows        int64  `json:"rows,omitempty"`
	Partitions  int    `json:"partitions,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Change      string `json:"change,omitempty"`
	ExecutionMS int64  `json:"execution_ms,omitempty"`

	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
	EventsScanned int    `json:"events_scanned,omitempty"`
	EventsKept    int    `json:"events_kept,omitempty"`
	Unmatched     int    `json:"unmatched_events,omitempty"`
	TotalTables   int    `json:"total_tables,omitempty"`
	TotalMS       int64  `json:"total_ms,omitempty"`
}
