package api

// DeletionsRequest re-arms executed events by deletion key.
type DeletionsRequest struct {
	Keys []string `json:"keys"`
}

type DeletionsResponse struct {
	Accepted int `json:"accepted"`
}

// RunRequest pauses or resumes the firing loop.
type RunRequest struct {
	Running bool `json:"running"`
}

type RunResponse struct {
	Running bool `json:"running"`
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
