package screenings

import "time"

// Screening statuses. A screening is terminal once completed, failed or cancelled.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Screening represents one classification job for an uploaded recording.
// Token is the server-issued opaque session token returned at upload time.
type Screening struct {
	Token        string     `json:"sessionToken"`
	RecordingID  string     `json:"recordingId"`
	LanguageCode string     `json:"languageCode"`
	Status       string     `json:"status"`
	Label        string     `json:"label,omitempty"`
	Probability  float64    `json:"probability,omitempty"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Terminal reports whether the screening reached a final state.
func (s Screening) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}
