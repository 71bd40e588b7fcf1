package model

// ResponseType tags the kind of formatted answer returned to the caller.
type ResponseType string

const (
	ResponseError    ResponseType = "error"
	ResponseAnalysis ResponseType = "analysis"
	ResponseReply    ResponseType = "response"
)

// AttachmentType tags the payload attached to an assistant message.
type AttachmentType string

const (
	AttachInlineTable AttachmentType = "inline_table"
	AttachCSV         AttachmentType = "attached_csv"
	AttachVisual      AttachmentType = "visual"
)

// ClassifyResult is the structured output of the intent classifier.
type ClassifyResult struct {
	Intent string `json:"intent"`
	Reason string `json:"reason"`
}

// FormattedResponse is the terminal, user-facing answer of a run.
type FormattedResponse struct {
	Type    ResponseType    `json:"type"`
	Message string          `json:"message"`
	Data    any             `json:"data,omitempty"`
	Attach  *AttachmentType `json:"attach,omitempty"`
}

// ErrorResponseMessage is the canonical user-facing text for any run that
// could not produce a result. Raw errors never reach the caller.
const ErrorResponseMessage = "I couldn't find an answer. " +
	"Could you please provide more specific information about what you're looking for?"

// ErrorResponse returns the fixed error payload used by the formatter's
// error branch and by the run boundary.
func ErrorResponse() *FormattedResponse {
	return &FormattedResponse{
		Type:    ResponseError,
		Message: ErrorResponseMessage,
	}
}

// AnalyzeResult is the caller-facing contract of one agent run.
type AnalyzeResult struct {
	Query         string             `json:"query"`
	Result        *FormattedResponse `json:"result"`
	CodeGenerated string             `json:"code_generated,omitempty"`
}

func attachPtr(a AttachmentType) *AttachmentType { return &a }

// VisualAttach is the forced attachment tag for the visualization branch.
func VisualAttach() *AttachmentType { return attachPtr(AttachVisual) }
