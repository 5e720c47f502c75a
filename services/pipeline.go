package services

import (
	"context"
	"strings"

	"docchat-service/internal/ai"
	"docchat-service/models"
)

// RetrievalK is the number of chunks handed to the answer composer.
const RetrievalK = 3

const contextualizeSystemPrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, just " +
	"reformulate it if needed and otherwise return it as is."

const answerSystemPrompt = "You are an assistant for question-answering tasks. Use " +
	"the following pieces of retrieved context to answer the " +
	"question. If you don't know the answer, just say that you " +
	"don't know. Use three sentences maximum and keep the answer " +
	"concise."

// Retriever finds the chunks closest to a query in a tenant's index.
type Retriever struct {
	embedder ai.Embedder
	store    IndexStore
	k        int
}

// NewRetriever creates a retriever returning up to RetrievalK chunks.
func NewRetriever(embedder ai.Embedder, store IndexStore) *Retriever {
	return &Retriever{embedder: embedder, store: store, k: RetrievalK}
}

// Retrieve returns up to K chunks in decreasing similarity to query.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, query string) ([]models.Chunk, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.store.Search(ctx, tenantID, vector, r.k)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, len(hits))
	for i, hit := range hits {
		chunks[i] = hit.Chunk
	}
	return chunks, nil
}

// QueryRewriter turns a follow-up message into a standalone question.
type QueryRewriter struct {
	model ai.LanguageModel
}

func NewQueryRewriter(model ai.LanguageModel) *QueryRewriter {
	return &QueryRewriter{model: model}
}

// Rewrite returns message unchanged when there is no history.
func (w *QueryRewriter) Rewrite(ctx context.Context, history []models.Turn, message string) (string, error) {
	if len(history) == 0 {
		return message, nil
	}

	rewritten, err := w.model.Generate(ctx, contextualizeSystemPrompt, history, message)
	if err != nil {
		return "", err
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return message, nil
	}
	return rewritten, nil
}

// AnswerComposer answers a question from retrieved chunks.
type AnswerComposer struct {
	model ai.LanguageModel
}

func NewAnswerComposer(model ai.LanguageModel) *AnswerComposer {
	return &AnswerComposer{model: model}
}

// Answer makes one model call with the chunks as context, in the given order.
func (c *AnswerComposer) Answer(ctx context.Context, query string, chunks []models.Chunk, history []models.Turn) (string, error) {
	return c.model.Generate(ctx, answerPrompt(chunks), history, query)
}

func answerPrompt(chunks []models.Chunk) string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return answerSystemPrompt + "\n\n" + strings.Join(texts, "\n\n")
}
