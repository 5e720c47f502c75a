package models

// Turn is one exchange of a conversation.
type Turn struct {
	Message string `json:"message"`
	Answer  string `json:"answer"`
}

type ChatRequest struct {
	CompanyID string `json:"company_id" binding:"required"`
	Message   string `json:"message" binding:"required,max=4000"`
}

type ChatResponse struct {
	Response string  `json:"response"`
	Sources  []Chunk `json:"sources,omitempty"`
}

// ChatResult is the outcome of one pass through a tenant pipeline.
type ChatResult struct {
	Answer          string
	StandaloneQuery string
	Sources         []Chunk
}

type AnalyticsResponse struct {
	RequestCount int64 `json:"request_count"`
}
