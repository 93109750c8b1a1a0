package pipeline

import (
	"fmt"

	"linkbrief/internal/domain"
)

type Stage string

const (
	StageClassify  Stage = "classify"
	StageExtract   Stage = "extract"
	StageSummarize Stage = "summarize"
)

type ErrorKind string

const (
	KindUnsupportedContent     ErrorKind = "unsupported_content"
	KindExtractionNotFound     ErrorKind = "extraction_not_found"
	KindExtractionTimeout      ErrorKind = "extraction_timeout"
	KindExtractionAccessDenied ErrorKind = "extraction_access_denied"
	KindExtractionParseFailure ErrorKind = "extraction_parse_failure"
	KindAllBackendsExhausted   ErrorKind = "all_backends_exhausted"
	KindCanceled               ErrorKind = "canceled"
)

const GenericFailureMessage = "Sorry, I couldn't summarize that link."

// Failure is the single error value that leaves the pipeline. Detail is for
// logs only.
type Failure struct {
	Stage  Stage
	Kind   ErrorKind
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (kind = %s): %s", f.Stage, f.Kind, f.Detail)
}

// UserMessage is the same for every failure and never contains Detail.
func (f *Failure) UserMessage() string {
	return GenericFailureMessage
}

// Result is a successful pipeline run.
type Result struct {
	RequestID string          `json:"request_id"`
	URL       string          `json:"url"`
	Category  domain.Category `json:"category"`
	Title     string          `json:"title"`
	Author    string          `json:"author,omitempty"`
	Summary   domain.Summary  `json:"summary"`
	Backend   string          `json:"backend"`
	Augmented bool            `json:"augmented"`
}
