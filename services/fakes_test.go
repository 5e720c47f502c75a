package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"docchat-service/models"
)

const fakeDims = 256

// fakeEmbedder hashes words into a bag-of-words vector.
type fakeEmbedder struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.fail.Load() {
		return nil, &models.UpstreamError{Provider: "fake", Op: "embed", Err: errors.New("boom")}
	}
	return bagOfWords(text), nil
}

func bagOfWords(text string) []float32 {
	vector := make([]float32, fakeDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[h.Sum32()%fakeDims]++
	}
	return vector
}

type modelCall struct {
	System  string
	History []models.Turn
	Input   string
}

// fakeModel records calls and answers through respond.
type fakeModel struct {
	mu      sync.Mutex
	calls   []modelCall
	respond func(system string, history []models.Turn, input string) (string, error)
}

func (m *fakeModel) Generate(_ context.Context, system string, history []models.Turn, input string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, modelCall{System: system, History: history, Input: input})
	respond := m.respond
	m.mu.Unlock()

	if respond == nil {
		return echoModel(system, history, input)
	}
	return respond(system, history, input)
}

func (m *fakeModel) recorded() []modelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]modelCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// echoModel keeps questions as they are and answers with the context it was given.
func echoModel(system string, _ []models.Turn, input string) (string, error) {
	if system == contextualizeSystemPrompt {
		return input, nil
	}
	return strings.TrimSpace(strings.TrimPrefix(system, answerSystemPrompt)), nil
}

// stubSource serves fixed chunks or an error.
type stubSource struct {
	mu     sync.Mutex
	chunks []models.Chunk
	err    error
}

func (s *stubSource) Load(context.Context, string) ([]models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks, nil
}

func (s *stubSource) set(chunks []models.Chunk, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks, s.err = chunks, err
}

type recordingCatalog struct {
	mu      sync.Mutex
	records []models.DocumentRecord
	err     error
}

func (c *recordingCatalog) RecordUpload(_ context.Context, record models.DocumentRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, record)
	return nil
}
