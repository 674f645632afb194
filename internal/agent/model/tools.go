package model

// Plan is one catalog entry. Mobile plans carry Data/Validity/SMS; fiber plans
// carry Speed/OTT.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Price    int      `json:"price"`
	Data     string   `json:"data,omitempty"`
	Validity string   `json:"validity,omitempty"`
	Speed    string   `json:"speed,omitempty"`
	Voice    string   `json:"voice,omitempty"`
	SMS      string   `json:"sms,omitempty"`
	OTT      []string `json:"ott,omitempty"`
	Benefits []string `json:"benefits,omitempty"`
	// Details holds free text when the plan came from a knowledge search hit
	// rather than the catalog.
	Details string `json:"details,omitempty"`
}

// IsMobile reports whether the plan has the mobile shape (data + validity).
func (p Plan) IsMobile() bool {
	return p.Data != "" && p.Validity != ""
}

// IsFiber reports whether the plan has the broadband shape.
func (p Plan) IsFiber() bool {
	return p.Speed != ""
}

// KnowledgeDocument is one source page of the retrieval knowledge base.
type KnowledgeDocument struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// PlanHit is a search result over the knowledge base.
type PlanHit struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Title   string  `json:"title,omitempty"`
	Score   float64 `json:"score"`
}
