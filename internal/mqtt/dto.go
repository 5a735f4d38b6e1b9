package mqtt

import "time"

// VerdictDTO is the payload published for every successful analysis.
//
// Field names are consumed by the aggregator; add fields, never rename them.
type VerdictDTO struct {
	Kind       string    `json:"kind"`                // "face" or "audio"
	Instance   string    `json:"instance"`            // main.name of the publishing service
	Timestamp  *int64    `json:"timestamp,omitempty"` // client supplied, echoed unchanged
	AnalyzedAt time.Time `json:"analyzedAt"`
	Flags      []string  `json:"flags"`
	Analysis   any       `json:"analysis"` // FaceSignalResult or AudioSignalResult
}
