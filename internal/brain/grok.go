package brain

// xAI speaks the chat-completions format at its own endpoint.
const (
	grokEndpoint = "https://api.x.ai/v1/chat/completions"
	grokModel    = "grok-3-mini"
)
