// README: Retrieval-gated question answering; refuses when the corpus has no coverage.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docent/internal/ai"
	"docent/internal/config"
)

var (
	// ErrIndexUnavailable means the passage index has not been built or
	// cannot be opened.
	ErrIndexUnavailable = errors.New("passage index unavailable")
	// ErrEmptyQuestion rejects blank input at the boundary.
	ErrEmptyQuestion = errors.New("question is empty")
)

// ScoredPassage is one retrieval hit. Score is a cosine distance: lower is
// better, 0 is identical.
type ScoredPassage struct {
	Passage string
	Score   float64
}

// Retriever is the similarity-search oracle.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]ScoredPassage, error)
}

// OutcomeKind tags the answer result.
type OutcomeKind string

const (
	Answered    OutcomeKind = "answered"
	OutOfScope  OutcomeKind = "out_of_scope"
	Unavailable OutcomeKind = "unavailable"
)

// Outcome is the tagged result of one question. Reason is set only for
// Unavailable, Text only for Answered.
type Outcome struct {
	Kind   OutcomeKind
	Text   string
	Reason string
}

// Answerer gates text generation behind retrieval: a question is forwarded
// to the generator only when the best retrieved passage scores within
// MaxDistance (cosine distance, lower is better). Everything else is refused
// rather than guessed.
type Answerer struct {
	retriever Retriever
	generator ai.TextGenerator
	cfg       config.AnswerConfig
}

func NewAnswerer(retriever Retriever, generator ai.TextGenerator, cfg config.AnswerConfig) *Answerer {
	if cfg.TopK <= 0 {
		cfg.TopK = 2
	}
	return &Answerer{retriever: retriever, generator: generator, cfg: cfg}
}

// Answer runs the gate for one question. atSpot is the name of the spot the
// visitor is standing at, or "" when outside any geofence; it frames the
// question but never widens the gate.
//
// Dependency failures surface as Unavailable with a distinguishable reason,
// never as OutOfScope, and never fall through to generation.
func (a *Answerer) Answer(ctx context.Context, question, atSpot string) (Outcome, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Outcome{}, ErrEmptyQuestion
	}

	if a.retriever == nil {
		return Outcome{Kind: Unavailable, Reason: "index missing"}, nil
	}
	if a.generator == nil {
		return Outcome{Kind: Unavailable, Reason: "key missing"}, nil
	}

	framed := question
	if atSpot != "" {
		framed = fmt.Sprintf("我現在在「%s」，%s", atSpot, question)
	}

	hits, err := a.retriever.Search(ctx, framed, a.cfg.TopK)
	if err != nil {
		if errors.Is(err, ErrIndexUnavailable) {
			return Outcome{Kind: Unavailable, Reason: "index missing"}, nil
		}
		return Outcome{Kind: Unavailable, Reason: "retrieval failed"}, nil
	}
	if len(hits) == 0 || hits[0].Score > a.cfg.MaxDistance {
		return Outcome{Kind: OutOfScope}, nil
	}

	text, err := a.generator.Generate(ctx, buildGuidePrompt(hits, framed))
	if err != nil {
		return Outcome{Kind: Unavailable, Reason: "generation failed"}, nil
	}
	return Outcome{Kind: Answered, Text: strings.TrimSpace(text)}, nil
}

// buildGuidePrompt grounds the generator on the retrieved passages only.
func buildGuidePrompt(hits []ScoredPassage, question string) string {
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Passage
	}
	return fmt.Sprintf(
		"你是一位在地導覽員，只能根據下列背景資訊回答。\n"+
			"若背景中沒有答案，請直接說不知道。\n\n"+
			"背景資訊：%s\n"+
			"問題：%s",
		strings.Join(passages, "\n---\n"), question)
}
