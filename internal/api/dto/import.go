package dto

type ImportRequest struct {
	Addresses []string `json:"addresses"`
}

type ImportResultResponse struct {
	Address  string            `json:"address"`
	Status   string            `json:"status"`
	Location *LocationResponse `json:"location,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type ImportResponse struct {
	Results []ImportResultResponse `json:"results"`
}
