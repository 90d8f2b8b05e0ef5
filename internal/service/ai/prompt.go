package ai

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// promptTemplate renders the single user message sent to every provider.
const promptTemplate = "Translate/Respond in {language}:\n{document}\nUser: {query}"

func newChatTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.UserMessage(promptTemplate),
	)
}

func buildPromptInput(languageName, document, query string) map[string]any {
	return map[string]any{
		"language": languageName,
		"document": document,
		"query":    query,
	}
}
