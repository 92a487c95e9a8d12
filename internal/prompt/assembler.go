package prompt

import "github.com/nebusoku/ghostnet-daemon/internal/domain"

// Policy is the fixed first system message on every request. It pins the
// assistant to its project and tells it to decline rather than fabricate.
const Policy = "Policy: You are GhostNet Daemon for the Eris-Lily-Cyber project. " +
	"Prefer concise, correct answers. If you lack relevant context, say you don't know. " +
	"Do not guess or invent facts. Ignore unrelated topics (e.g., any malware named GhostNet)."

const grounding = "You must answer using ONLY the context below. " +
	"If it is insufficient or unrelated, say you don't know.\n\n"

const softIgnorance = "If you lack relevant context for the user's question, " +
	"say you don't know. Do not guess."

// Assemble builds the message sequence for the model. The fixed policy is
// always first; with retrieval enabled the grounding instruction (or, when no
// context survived retrieval, the soft ignorance instruction) comes directly
// after it so it outweighs everything but the policy, then the caller's
// system message, then the history verbatim. Pure function: the history
// slice is never mutated.
func Assemble(history []domain.ChatMessage, system string, retrieval bool, context string) []domain.ChatMessage {
	msgs := make([]domain.ChatMessage, 0, len(history)+3)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: Policy})
	if retrieval {
		if context != "" {
			msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: grounding + context})
		} else {
			msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: softIgnorance})
		}
	}
	if system != "" {
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	}
	return append(msgs, history...)
}

// LastUserMessage returns the content of the most recent user turn, scanning
// from the end. An empty string when the history has no user turn.
func LastUserMessage(history []domain.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
