package agent

import "github.com/sashabaranov/go-openai"

var SystemPrompt = `You are a Task Master Assistant, designed to help users create, manage, and analyze project tasks.

You can perform the following operations:
- Create Tasks: Create new tasks from scratch
- List Tasks: View all current tasks
- Update Tasks: Modify task details or status
- Decompose Tasks: Break down large tasks into subtasks
- Set Dependencies: Establish relationships between tasks
- Analyze Projects: Analyze project complexity and task structure

Based on the user's request, choose the most appropriate tool and provide clear, concise responses.
Always prioritize helping users efficiently achieve their task management goals.`

// PromptTemplate is a system instruction followed by the running history.
type PromptTemplate struct {
	System string
}

func DefaultPrompt() PromptTemplate {
	return PromptTemplate{System: SystemPrompt}
}

func (p PromptTemplate) Format(history []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	return append(msgs, history...)
}

func UserMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}
}

func AssistantMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}
