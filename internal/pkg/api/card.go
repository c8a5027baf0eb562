package api

//Card is an adaptive card payload
type Card struct {
	Type    string      `json:"type"`
	Version string      `json:"version"`
	Schema  string      `json:"$schema"`
	Body    []TextBlock `json:"body"`
}

//TextBlock is an adaptive card text element
type TextBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Weight   string `json:"weight,omitempty"`
	Size     string `json:"size,omitempty"`
	Spacing  string `json:"spacing,omitempty"`
	Wrap     bool   `json:"wrap,omitempty"`
	IsSubtle bool   `json:"isSubtle,omitempty"`
}
