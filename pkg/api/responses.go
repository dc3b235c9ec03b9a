package api

// ActionResponse acknowledges an accepted submission.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the root endpoint payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
