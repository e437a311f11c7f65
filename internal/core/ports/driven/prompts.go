package driven

// PromptStore provides the prompt templates sent to the language model.
type PromptStore interface {
	// Load returns the template for name. Unknown names are an error.
	Load(name string) (string, error)
}

// Well-known prompt names.
const (
	// PromptChatSystem is the system prompt used when answering questions.
	// It expects one %s placeholder for the retrieved context block.
	PromptChatSystem = "chat_system"

	// PromptSupportPage turns a video transcript into a markdown support page.
	// It expects %s placeholders for the video id and the transcript, in that order.
	PromptSupportPage = "support_page"
)
