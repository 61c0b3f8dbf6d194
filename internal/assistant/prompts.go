package assistant

import (
	"fmt"
	"strings"

	"video-assistant/internal/classifier"
	"video-assistant/internal/window"
)

const responderSystemPrompt = `Tu es un assistant IA expert en explication de contenu vidéo YouTube.
Tu reçois une analyse détaillée de la question de l'utilisateur et tu dois produire la meilleure réponse possible.

SELON LE TYPE DE QUESTION:
**DEFINITION**: donne une définition claire, puis explique-la dans le contexte de la vidéo
**CLARIFICATION**: éclaircis le point confus à partir de ce qui vient d'être dit
**CONTEXT**: apporte le contexte manquant et relie-le aux autres parties de la vidéo
**SUMMARY**: résume de façon structurée
**TIMESTAMP**: renvoie aux moments précis avec leurs timestamps
**COMPARISON**: compare les éléments en faisant ressortir différences et points communs
**APPLICATION**: donne des exemples concrets d'application
**GENERAL**: réponds de façon générale en restant ancré dans la vidéo

SELON LE STYLE:
**CONCISE**: 2 à 3 phrases au maximum
**DETAILED**: explication complète avec des exemples tirés de la vidéo
**STEP_BY_STEP**: étapes numérotées ou liste à puces
**CONVERSATIONAL**: ton naturel, comme avec un ami

RÈGLES:
- Utilise les timestamps [MM:SS] pour faire référence à d'autres moments
- Reste fidèle au contenu de la vidéo
- Si l'information n'est pas dans le contexte fourni, dis-le clairement
- Sois précis et évite les généralités`

// buildResponderPrompt assembles the second-pass prompt carrying the analysis
func buildResponderPrompt(w window.Window, question string, analysis classifier.Classification, extended string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "QUESTION ORIGINALE: \"%s\"\n\n", question)
	sb.WriteString("ANALYSE DE LA QUESTION:\n")
	fmt.Fprintf(&sb, "- Type: %s\n", analysis.QuestionType)
	fmt.Fprintf(&sb, "- Stratégie de contexte: %s\n", analysis.ContextStrategy)
	fmt.Fprintf(&sb, "- Style de réponse: %s\n", analysis.ResponseStyle)
	fmt.Fprintf(&sb, "- Mots-clés: %s\n\n", strings.Join(analysis.Keywords, ", "))
	fmt.Fprintf(&sb, "MOMENT ACTUEL: %s\n\n", w.CurrentTimeFormatted)
	sb.WriteString("CONTEXTE PRIORITAIRE (autour du moment actuel):\n")
	sb.WriteString(w.PriorityText)
	sb.WriteString("\nCONTEXTE DE RÉFÉRENCE (reste de la vidéo):\n")
	sb.WriteString(extended)
	sb.WriteString("\n\nProduis maintenant la meilleure réponse selon cette analyse:")

	return sb.String()
}
