package llm

// ollamaChatRequest represents a chat request to Ollama
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

// ollamaOptions carries generation parameters
type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// ollamaMessage represents a chat message
type ollamaMessage struct {
	Role     string `json:"role"` // "user", "assistant", or "system"
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"` // For reasoning models like deepseek-r1
}

// ollamaChatResponse represents a non-streaming response from Ollama
type ollamaChatResponse struct {
	Model     string        `json:"model"`
	CreatedAt string        `json:"created_at"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`
}
