// Package domain contains the core business entities and types.
package domain

import (
	"log/slog"
	"time"
)

// PlaceholderTitle is used when the extraction tool reports no title.
const PlaceholderTitle = "downloaded_audio"

// JobState is a step of the per-request pipeline.
type JobState string

const (
	JobStateStart      JobState = "start"
	JobStateInvoking   JobState = "invoking"
	JobStateResolving  JobState = "resolving"
	JobStateDelivering JobState = "delivering"
	JobStateCleaningUp JobState = "cleaning_up"
	JobStateDone       JobState = "done"
	JobStateFailed     JobState = "failed"
)

// Job records the progress of one download request through the pipeline.
// It is owned by the request that created it and is never shared.
type Job struct {
	ID           string     `json:"id"` // per-request unique base name, never shown to clients
	URL          string     `json:"url"`
	Title        string     `json:"title,omitempty"`
	State        JobState   `json:"state"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	Error        string     `json:"error,omitempty"`
	ResolvedTier int        `json:"resolved_tier,omitempty"`
	Degraded     bool       `json:"degraded"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a new Job for the given token and URL.
func NewJob(id, url string) *Job {
	return &Job{
		ID:        id,
		URL:       url,
		State:     JobStateStart,
		CreatedAt: time.Now().UTC(),
	}
}

// Transition moves the job to the given state.
func (j *Job) Transition(state JobState) {
	j.State = state
}

// MarkDone marks the job as successfully delivered.
func (j *Job) MarkDone() {
	j.State = JobStateDone
	now := time.Now().UTC()
	j.CompletedAt = &now
}

// MarkFailed marks the job as failed with the classified error.
func (j *Job) MarkFailed(err error) {
	j.State = JobStateFailed
	j.ErrorKind = KindOf(err)
	j.Error = err.Error()
	now := time.Now().UTC()
	j.CompletedAt = &now
}

// DownloadRequest is the caller-supplied input of one pipeline run.
type DownloadRequest struct {
	SourceURL string
}

// ExtractionConfig is handed to the extraction tool for a single invocation.
type ExtractionConfig struct {
	Format             string // audio format preference, "bestaudio/best"
	OutputTemplate     string // <downloadDir>/<token>/<token>.%(ext)s
	Codec              string // target codec, also the output extension
	BitrateKbps        int
	NoPlaylist         bool
	InsecureSkipVerify bool
	FFmpegPath         string
	Logger             *slog.Logger
}

// Outcome classifies the result of an extraction.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeExtractionFailed
	OutcomeUnexpectedFailure
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeExtractionFailed:
		return "extraction_failed"
	case OutcomeUnexpectedFailure:
		return "unexpected_failure"
	default:
		return "unknown"
	}
}

// ExtractionResult is returned by the Extraction Invoker.
type ExtractionResult struct {
	Title      string
	WorkingDir string
	Outcome    Outcome
	Detail     string
}

// Err converts a failed outcome into a classified error. It returns nil on success.
func (r *ExtractionResult) Err() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeExtractionFailed:
		return wrapDetail(ErrExtractionFailed, r.Detail)
	default:
		return wrapDetail(ErrUnexpected, r.Detail)
	}
}

// ResolvedOutput is the single output file located for a request.
type ResolvedOutput struct {
	AbsolutePath string
	DisplayName  string        // file name shown to the client
	Tier         int           // resolver rule that matched (1-3)
	Degraded     bool          // matched only by the last-resort scan
	Duration     time.Duration // filled in by the audio finalizer when known
}

// VideoInfo is the subset of the extraction tool's info JSON we read.
type VideoInfo struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration,omitempty"` // in seconds
	Extractor  string  `json:"extractor,omitempty"`
	WebpageURL string  `json:"webpage_url,omitempty"`
	Ext        string  `json:"ext,omitempty"`
}

// HealthResponse represents the response for a health check.
type HealthResponse struct {
	Status    string         `json:"status"`
	Requests  map[string]int `json:"requests,omitempty"`
	Delivery  string         `json:"delivery"`
	AudioType string         `json:"audio_format"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
