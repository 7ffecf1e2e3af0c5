package core

// Usage holds the running token counters of a session. Reasoning tokens may
// be counted separately by the model, so TotalTokens is not required to equal
// InputTokens + OutputTokens.
type Usage struct {
	InputTokens     int64 `json:"input_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	TotalTokens     int64 `json:"total_tokens"`
}

// Add returns the field-wise sum of u and delta.
func (u Usage) Add(delta Usage) Usage {
	return Usage{
		InputTokens:     u.InputTokens + delta.InputTokens,
		ReasoningTokens: u.ReasoningTokens + delta.ReasoningTokens,
		OutputTokens:    u.OutputTokens + delta.OutputTokens,
		TotalTokens:     u.TotalTokens + delta.TotalTokens,
	}
}

// IsZero reports whether all four counters are zero.
func (u Usage) IsZero() bool {
	return u.InputTokens == 0 && u.ReasoningTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0
}
