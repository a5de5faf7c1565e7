package health

type Response struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Sessions    int    `json:"sessions"`
	Connections int    `json:"connections"`
}
