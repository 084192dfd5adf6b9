package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piolet-labs/piolet-cli/internal/core/domain"
)

func answerFixture(vectorHits []domain.ScoredChunk, llm *mockLLM) *AnswerService {
	store := newMockChunkStore()
	store.vectorHits = vectorHits
	searcher := NewSearchService(store, &mockEmbedder{})
	return NewAnswerService(searcher, llm)
}

func TestAnswerGeneratesGroundedReply(t *testing.T) {
	llm := &mockLLM{reply: "Los envíos a París tardan 3 días."}
	svc := answerFixture([]domain.ScoredChunk{
		hit("shipping-guide", 0, 0.9, "vector"),
		hit("faq", 0, 0.7, "vector"),
	}, llm)

	answer, err := svc.Answer(context.Background(), "¿Cuánto tarda un envío a París?", 0)
	require.NoError(t, err)

	assert.Equal(t, "Los envíos a París tardan 3 días.", answer.Reply)
	assert.Equal(t, []string{"shipping-guide", "faq"}, answer.Sources)
	assert.Equal(t, 1, llm.calls)

	require.Len(t, llm.messages, 2)
	assert.Equal(t, "system", llm.messages[0].Role)
	assert.Contains(t, llm.messages[1].Content, "¿Cuánto tarda un envío a París?")
	assert.Contains(t, llm.messages[1].Content, "[Fuente:")
}

func TestAnswerEmptyRetrievalSkipsModel(t *testing.T) {
	llm := &mockLLM{reply: "should never be used"}
	svc := answerFixture(nil, llm)

	answer, err := svc.Answer(context.Background(), "¿Tienen tienda física?", 0)
	require.NoError(t, err)

	assert.Contains(t, answer.Reply, "No tengo información suficiente")
	assert.Empty(t, answer.Sources)
	assert.Zero(t, llm.calls, "model must not be called without context")
}

func TestAnswerRetrievesByVectorOnly(t *testing.T) {
	store := newMockChunkStore()
	store.vectorHits = []domain.ScoredChunk{hit("guide", 0, 0.9, "vector")}
	store.lexicalErr = errors.New("lexical index offline")
	llm := &mockLLM{reply: "respuesta"}
	svc := NewAnswerService(NewSearchService(store, &mockEmbedder{}), llm)

	answer, err := svc.Answer(context.Background(), "pregunta", 3)
	require.NoError(t, err)
	assert.Equal(t, "respuesta", answer.Reply)
	assert.Zero(t, store.lexicalCalls, "answer context must come from vector retrieval alone")
}

func TestAnswerDeduplicatesSources(t *testing.T) {
	llm := &mockLLM{reply: "respuesta"}
	svc := answerFixture([]domain.ScoredChunk{
		hit("guide", 0, 0.9, "vector"),
		hit("guide", 1, 0.8, "vector"),
		hit("faq", 0, 0.7, "vector"),
	}, llm)

	answer, err := svc.Answer(context.Background(), "pregunta", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"guide", "faq"}, answer.Sources)
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	svc := answerFixture(nil, &mockLLM{})
	_, err := svc.Answer(context.Background(), "  ", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswerWithoutModelIsUnavailable(t *testing.T) {
	searcher := NewSearchService(newMockChunkStore(), &mockEmbedder{})
	svc := NewAnswerService(searcher, nil)

	_, err := svc.Answer(context.Background(), "pregunta", 0)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestAnswerModelFailurePropagates(t *testing.T) {
	llm := &mockLLM{chatErr: errors.New("rate limited")}
	svc := answerFixture([]domain.ScoredChunk{hit("guide", 0, 0.9, "vector")}, llm)

	_, err := svc.Answer(context.Background(), "pregunta", 0)
	assert.ErrorContains(t, err, "rate limited")
}

func TestAnswerRetrievalFailurePropagates(t *testing.T) {
	store := newMockChunkStore()
	store.vectorErr = errors.New("store offline")
	searcher := NewSearchService(store, &mockEmbedder{})
	svc := NewAnswerService(searcher, &mockLLM{})

	_, err := svc.Answer(context.Background(), "pregunta", 0)
	assert.ErrorContains(t, err, "store offline")
}
