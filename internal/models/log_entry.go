package models

import "time"

// OutputCategory mirrors the DAP `output` event's category field.
type OutputCategory string

const (
	OutputCategoryStdout   OutputCategory = "stdout"
	OutputCategoryStderr   OutputCategory = "stderr"
	OutputCategoryConsole  OutputCategory = "console"
	OutputCategoryTelemetry OutputCategory = "telemetry"
)

// OutputLine is one buffered line of debuggee output, retained up to the
// configured ring-buffer size so a late-attaching client still sees recent
// history.
type OutputLine struct {
	Timestamp time.Time      `json:"timestamp"`
	Category  OutputCategory `json:"category"`
	Text      string         `json:"text"`
}
