package models

// GenerateRequest carries the prompt parameters of the AI helper endpoints
type GenerateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date,omitempty"`
	Location    string   `json:"location,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type DescriptionResponse struct {
	Description string `json:"description"`
}

type AgendaResponse struct {
	Agenda []AgendaItem `json:"agenda"`
}

type TagsResponse struct {
	Tags []string `json:"tags"`
}
