package agent

// Message is a post broadcast by one agent to its followers. It is created
// by Send and never modified afterwards; Vector is a snapshot taken at send
// time and does not alias the sender's table.
type Message struct {
	ID      int64     `json:"id"`
	Step    int       `json:"step"`
	Sender  int       `json:"sender"`
	Content []string  `json:"content"`
	Vector  []float64 `json:"vector"`
}
