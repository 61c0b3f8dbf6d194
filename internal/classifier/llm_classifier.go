package classifier

import (
	"context"
	"fmt"
	"log/slog"

	"video-assistant/internal/llm"
)

const (
	classifierTemperature = 0.1
	classifierMaxTokens   = 500
)

// LLMClassifier asks the model to analyze the question
type LLMClassifier struct {
	completer llm.Completer
	logger    *slog.Logger
}

// NewLLMClassifier creates a new model-backed classifier
func NewLLMClassifier(completer llm.Completer, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{
		completer: completer,
		logger:    logger.With(slog.String("component", "classifier")),
	}
}

const analyzerSystemPrompt = `Tu es un expert de l'analyse de questions posées sur des vidéos YouTube.
Analyse la question de l'utilisateur et détermine:

1. TYPE DE QUESTION (un seul):
   - "definition": demande la définition ou l'explication d'un concept
   - "clarification": veut éclaircir ce qui vient d'être dit
   - "context": veut du contexte ou des détails supplémentaires
   - "summary": veut un résumé de ce qui a été dit
   - "timestamp": fait référence à un moment précis
   - "comparison": veut comparer des éléments
   - "application": veut savoir comment appliquer quelque chose
   - "general": question générale sur le sujet de la vidéo

2. STRATÉGIE DE CONTEXTE (une seule):
   - "current_focus": se concentrer sur le moment actuel
   - "recent_context": utiliser les dernières minutes
   - "broad_context": chercher dans toute la vidéo
   - "specific_search": chercher des mots-clés précis

3. STYLE DE RÉPONSE (un seul):
   - "concise": court et direct
   - "detailed": explication détaillée avec exemples
   - "step_by_step": explication étape par étape
   - "conversational": ton naturel et accessible

4. MOTS-CLÉS: les termes importants de la question

Réponds UNIQUEMENT avec un JSON valide:
{
    "question_type": "...",
    "context_strategy": "...",
    "response_style": "...",
    "keywords": ["mot1", "mot2"],
    "confidence": 0.95,
    "reasoning": "courte explication"
}`

// Classify runs the analyzer prompt. A failed call or an unusable answer
// yields the default record instead of an error.
func (c *LLMClassifier) Classify(ctx context.Context, in Input) Result {
	prompt := fmt.Sprintf(`QUESTION DE L'UTILISATEUR: "%s"

MOMENT ACTUEL DANS LA VIDÉO: %s

CONTEXTE AUTOUR DU MOMENT ACTUEL:
%s

Analyse cette question et réponds en JSON:`, in.Question, in.CurrentTimeFormatted, in.PriorityPreview)

	response, err := c.completer.Complete(ctx, llm.Request{
		SystemPrompt: analyzerSystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    classifierMaxTokens,
		Temperature:  classifierTemperature,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "classifier call failed, using default", slog.Any("error", err))
		return defaulted(err, fmt.Sprintf("Error fallback: %v", err), CallFailureConfidence)
	}

	classification, err := Parse(response)
	if err != nil {
		c.logger.WarnContext(ctx, "classifier output unusable, using default",
			slog.Any("error", err),
			slog.String("response", response),
		)
		return defaulted(err, fmt.Sprintf("Parsing failed: %v", err), ParseFailureConfidence)
	}

	c.logger.DebugContext(ctx, "question classified",
		slog.String("question_type", classification.QuestionType),
		slog.String("context_strategy", classification.ContextStrategy),
		slog.String("response_style", classification.ResponseStyle),
	)

	return Result{Classification: classification}
}
