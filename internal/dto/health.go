package dto

// Health is the /healthz payload.
type Health struct {
	Status      string `json:"status"`
	RunID       string `json:"runId"`
	Persistence bool   `json:"persistence"`
	Viewers     int    `json:"viewers"`
	Notified    uint64 `json:"notified"`
	Persisted   uint64 `json:"persisted"`
	Failed      uint64 `json:"failed"`
	Dropped     uint64 `json:"dropped"`
}
