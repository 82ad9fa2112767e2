package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/index"
	"github.com/websage/backend/pkg/logger"
)

// ErrNotIndexed signals that no extraction batch has been indexed yet; the
// embedding and generation paths are never invoked in that case.
var ErrNotIndexed = errors.New("no content indexed yet")

// InsufficientAnswer is the fixed sentence the model is instructed to
// return when the grounding context does not contain the answer.
const InsufficientAnswer = "I don't have enough information to answer this question based on the provided content."

const systemPrompt = `You are a helpful assistant that answers questions based ONLY on the provided context.
If the answer cannot be found in the context, say "I don't have enough information to answer this question based on the provided content."
Do not use any prior knowledge or information not contained in the context.`

// GenerationError wraps a hosted-model failure. It is surfaced to the
// caller verbatim; there is no silent retry beyond the client's own policy.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Completer is the hosted chat backend contract.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Retriever returns the top-k segments most similar to a question.
// *index.Snapshot satisfies it.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]index.Match, error)
}

// Answer is one grounded response with the segments used as context, in
// retrieval order, for citation display.
type Answer struct {
	ID        string
	Question  string
	Text      string
	Sources   []index.Match
	LatencyMS int
}

type Engine struct {
	llm  Completer
	topK int
}

func NewEngine(llm Completer, topK int) *Engine {
	if topK <= 0 {
		topK = index.DefaultTopK
	}
	return &Engine{
		llm:  llm,
		topK: topK,
	}
}

// Answer retrieves grounding context from the snapshot and asks the model.
func (e *Engine) Answer(ctx context.Context, snapshot Retriever, question string) (*Answer, error) {
	if snapshot == nil {
		return nil, ErrNotIndexed
	}

	start := time.Now()
	answerID := uuid.New().String()

	logger.Info("Answering question",
		zap.String("answer_id", answerID),
		zap.String("question", question),
	)

	matches, err := snapshot.Query(ctx, question, e.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	if len(matches) == 0 {
		logger.Warn("Retrieval returned no segments", zap.String("answer_id", answerID))
		return &Answer{
			ID:        answerID,
			Question:  question,
			Text:      InsufficientAnswer,
			LatencyMS: int(time.Since(start).Milliseconds()),
		}, nil
	}

	text, err := e.llm.Complete(ctx, systemPrompt, buildUserPrompt(question, matches))
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	latency := int(time.Since(start).Milliseconds())

	logger.Info("Question answered",
		zap.String("answer_id", answerID),
		zap.Int("sources", len(matches)),
		zap.Int("latency_ms", latency),
	)

	return &Answer{
		ID:        answerID,
		Question:  question,
		Text:      strings.TrimSpace(text),
		Sources:   matches,
		LatencyMS: latency,
	}, nil
}

func buildUserPrompt(question string, matches []index.Match) string {
	var builder strings.Builder

	builder.WriteString("Context:\n")
	for i, match := range matches {
		builder.WriteString(fmt.Sprintf("\n[Source %d] %s\n%s\n", i+1, match.Segment.Source, match.Segment.Content))
	}

	builder.WriteString(fmt.Sprintf("\nQuestion: %s\n\nAnswer:", question))

	return builder.String()
}
