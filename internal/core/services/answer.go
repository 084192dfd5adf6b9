package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driven"
	"github.com/piolet-labs/piolet-cli/internal/core/ports/driving"
	"github.com/piolet-labs/piolet-cli/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.Answerer = (*AnswerService)(nil)

// insufficientContextReply is returned when retrieval finds nothing. The
// model is never asked to answer without grounding.
const insufficientContextReply = "No tengo información suficiente para responder tu pregunta. " +
	"Por favor, intenta reformularla o pregunta sobre otro tema."

// answerSystemPrompt sets the assistant's voice.
const answerSystemPrompt = `Eres el asistente de Piolet, un amigo que platica con confianza y buena onda.
Tu estilo es cálido, amigable y cercano: explicas como si estuvieras platicando con alguien en confianza,
sin sonar técnico ni robótico. Usa frases sencillas, claras y con un tono positivo.

Si hablas de productos de Piolet, recomiéndalos como lo haría un amigo que ya los probó.
Siempre que haya información en los documentos, úsala para responder; si no hay, sé honesto y sugiere
al usuario preguntar directamente al equipo de Piolet.

Cuando cites una fuente, intégrala de forma natural ("esto lo puedes ver en nuestra guía...").`

// AnswerService retrieves context for a question and asks the model for a
// grounded reply.
type AnswerService struct {
	searcher driving.Searcher
	llm      driven.LLMService

	maxTokens   int
	temperature float64
}

// NewAnswerService creates an answer service over a searcher and a model.
func NewAnswerService(searcher driving.Searcher, llm driven.LLMService) *AnswerService {
	return &AnswerService{
		searcher:    searcher,
		llm:         llm,
		maxTokens:   600,
		temperature: 0.3,
	}
}

// Answer retrieves context and generates a reply with provenance. Context
// comes from the simplified vector-only retrieval path, unfiltered; the
// hybrid algorithm stays on the search surface. An empty retrieval yields
// the honest fallback reply without a model call.
func (s *AnswerService) Answer(ctx context.Context, question string, k int) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	hits, err := s.searcher.Retrieve(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	if len(hits) == 0 {
		logger.Debug("no context retrieved for %q", question)
		return &domain.Answer{
			Reply:   insufficientContextReply,
			Sources: []string{},
		}, nil
	}

	reply, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: buildUserPrompt(question, hits)},
	}, driven.ChatOptions{
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generating reply: %w", err)
	}

	return &domain.Answer{
		Reply:   reply,
		Sources: sourceIDs(hits),
	}, nil
}

// buildUserPrompt assembles the context block, one source-tagged section
// per chunk in rank order.
func buildUserPrompt(question string, hits []domain.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Contexto disponible:\n\n")
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Fuente: %s]\n%s", hit.Chunk.Title, hit.Chunk.Text)
	}
	fmt.Fprintf(&b, "\n\nPregunta: %s\n\n", question)
	b.WriteString("Responde basándote únicamente en la información del contexto anterior. " +
		"Si no puedes responder completamente con la información disponible, dilo claramente.")
	return b.String()
}

// sourceIDs lists the doc ids of the context chunks in rank order,
// without duplicates.
func sourceIDs(hits []domain.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(hits))
	sources := make([]string, 0, len(hits))
	for _, hit := range hits {
		if _, ok := seen[hit.Chunk.DocID]; ok {
			continue
		}
		seen[hit.Chunk.DocID] = struct{}{}
		sources = append(sources, hit.Chunk.DocID)
	}
	return sources
}
