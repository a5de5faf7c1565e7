package snapshots

// request body for the manual save endpoint
type SaveRequest struct {
	Code string `json:"code"`
}

type SaveResponse struct {
	Status string `json:"status"`
}

type LoadResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
