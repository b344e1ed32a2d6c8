package llm

const baseSystemPrompt = `You are Aiva, a friendly, insightful, and slightly witty AI assistant for AivaChat. You provide concise yet informative answers.`

const guestInstructions = `
The user is chatting as a guest. Nothing in this conversation is saved. If they ask about chat history, explain that logging in keeps their conversations.`

// SystemPrompt returns the system instruction a chat is opened with.
func SystemPrompt(guest bool) string {
	if guest {
		return baseSystemPrompt + "\n" + guestInstructions
	}
	return baseSystemPrompt
}
