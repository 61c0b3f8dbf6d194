package window

import (
	"fmt"
	"strings"
)

// SystemPrompt is the system message sent alongside BuildPrompt output
const SystemPrompt = "Tu es un assistant IA spécialisé dans l'explication de contenu vidéo."

// MemorySystemPrompt is used instead of SystemPrompt when conversation memory is included
const MemorySystemPrompt = "Tu es un assistant IA spécialisé dans l'explication de contenu vidéo, avec la mémoire des échanges précédents."

// BuildPrompt assembles the user prompt for a question asked at the window's
// current time. conversationContext is the rendered memory block; when empty
// the memory section and its instructions are left out.
func BuildPrompt(w Window, question string, conversationContext string) string {
	var sb strings.Builder

	sb.WriteString("Tu aides un utilisateur à comprendre une vidéo YouTube.\n\n")
	fmt.Fprintf(&sb, "L'utilisateur regarde la vidéo et se trouve actuellement à %s.\n\n", w.CurrentTimeFormatted)

	if conversationContext != "" {
		sb.WriteString(conversationContext)
		sb.WriteString("\nINSTRUCTIONS MÉMOIRE:\n")
		sb.WriteString("- Tu as accès aux échanges précédents de cette conversation sur cette vidéo\n")
		sb.WriteString("- Appuie-toi sur les questions et réponses précédentes quand c'est pertinent\n")
		sb.WriteString("- Si l'utilisateur fait référence à une réponse antérieure, utilise l'historique\n")
		sb.WriteString("- Reste cohérent avec tes réponses précédentes\n\n")
	}

	fmt.Fprintf(&sb, "=== CONTEXTE PRIORITAIRE (autour de %s) ===\n", w.CurrentTimeFormatted)
	sb.WriteString(w.PriorityText)
	sb.WriteString("\n=== CONTEXTE DE RÉFÉRENCE (reste de la vidéo) ===\n")
	sb.WriteString(w.ExtendedSummary)
	sb.WriteString("\n=== QUESTION DE L'UTILISATEUR ===\n")
	fmt.Fprintf(&sb, "\"%s\"\n\n", question)

	sb.WriteString("=== INSTRUCTIONS ===\n")
	sb.WriteString("1. Réponds en priorité à partir du contexte autour du moment actuel\n")
	sb.WriteString("2. Sers-toi du contexte de référence pour les définitions, rappels et liens nécessaires\n")
	sb.WriteString("3. Indique le timestamp [MM:SS] quand tu fais référence à un autre moment de la vidéo\n")
	if conversationContext != "" {
		sb.WriteString("4. Utilise l'historique si la question renvoie à des échanges précédents\n")
		sb.WriteString("5. Sois précis et ancré dans ce moment de la vidéo\n")
	} else {
		sb.WriteString("4. Sois précis et ancré dans ce moment de la vidéo\n")
		sb.WriteString("5. Si la réponse n'est pas dans le contexte prioritaire, cherche dans le contexte de référence\n")
	}

	sb.WriteString("\nRéponse:")
	return sb.String()
}
