package api

// SummaryResponse describes an opened container at a glance.
type SummaryResponse struct {
	Path       string   `json:"path,omitempty"`
	Level      int      `json:"level"`
	Extensions []string `json:"extensions"`
}

// ExtensionInfo is one registry entry.
type ExtensionInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Cards int    `json:"cards"`
	Shape []int  `json:"shape,omitempty"`
	Rows  int    `json:"rows,omitempty"`
}

// CardDTO is one header card.
type CardDTO struct {
	Keyword string `json:"keyword"`
	Value   any    `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// HeaderResponse is a full header dump for one extension.
type HeaderResponse struct {
	Name  string    `json:"name"`
	Cards []CardDTO `json:"cards"`
}

// ResponseError is the error envelope shared by all endpoints.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
