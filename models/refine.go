package models

// RefineRequest is the payload for POST /api/v1/refine.
// It applies an LLM refinement operation to caller-supplied text.
type RefineRequest struct {
	// Content is the text to refine. Required.
	Content string `json:"content" binding:"required"`

	// Op selects the refinement operation.
	// "clean" (default): strip navigation noise, ads and boilerplate while
	// preserving the meaningful text.
	// "chunk": split the text into semantically coherent sections.
	Op string `json:"op,omitempty" binding:"omitempty,oneof=clean chunk"`
}

// Defaults applies default values to unset fields.
func (r *RefineRequest) Defaults() {
	if r.Op == "" {
		r.Op = "clean"
	}
}

// RefineResponse is the response for POST /api/v1/refine.
type RefineResponse struct {
	// Success indicates whether the operation completed.
	Success bool `json:"success"`

	// Content is the cleaned text (op=clean).
	Content string `json:"content,omitempty"`

	// Chunks are the split sections (op=chunk).
	Chunks []string `json:"chunks,omitempty"`

	// Refined reports whether an LLM actually transformed the text.
	// False means no provider is configured or the call fell back to the
	// non-LLM path; the result is still usable.
	Refined bool `json:"refined"`

	// Tokens estimates size before and after refinement.
	Tokens TokenInfo `json:"tokens"`

	// Timing provides duration breakdowns for the operation.
	Timing RefineTimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// RefineTimingInfo breaks down refinement timing.
type RefineTimingInfo struct {
	TotalMs int64 `json:"total_ms"`
	LLMMs   int64 `json:"llm_ms"`
}
