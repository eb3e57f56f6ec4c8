package priorart

// MaxItems bounds the prior-art list handed to the novelty stage.
const MaxItems = 5

// Item is one candidate prior-art document.
type Item struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link,omitempty"`
}
