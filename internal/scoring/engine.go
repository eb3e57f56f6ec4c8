package scoring

import (
	"context"
	"errors"
	"fmt"

	"patent-backend/internal/llm"
	"patent-backend/internal/priorart"
	"patent-backend/internal/upstream"
)

// Engine runs the three scoring stages against one generator. It holds no
// per-run state and is safe for concurrent use.
type Engine struct {
	gen llm.Generator
}

// NewEngine constructs an Engine.
func NewEngine(gen llm.Generator) *Engine {
	return &Engine{gen: gen}
}

// Provider returns the generator name.
func (e *Engine) Provider() string {
	return e.gen.Name()
}

// Novelty scores inv against the supplied prior art.
func (e *Engine) Novelty(ctx context.Context, inv Invention, items []priorart.Item) (NoveltyResult, error) {
	prompt, err := NoveltyPrompt(inv, items)
	if err != nil {
		return NoveltyResult{}, fmt.Errorf("render novelty prompt: %w", err)
	}
	out, err := e.generate(ctx, prompt)
	if err != nil {
		return NoveltyResult{}, err
	}
	res, err := parseNovelty(e.gen.Name(), out.Text)
	res.TokensUsed = out.TokensUsed
	return res, err
}

// Inventiveness scores the invention given the score produced by Novelty.
func (e *Engine) Inventiveness(ctx context.Context, title string, noveltyScore float64) (InventivenessResult, error) {
	prompt, err := InventivenessPrompt(title, noveltyScore)
	if err != nil {
		return InventivenessResult{}, fmt.Errorf("render inventiveness prompt: %w", err)
	}
	out, err := e.generate(ctx, prompt)
	if err != nil {
		return InventivenessResult{}, err
	}
	res, err := parseInventiveness(e.gen.Name(), out.Text)
	res.TokensUsed = out.TokensUsed
	return res, err
}

// Utility scores industrial applicability from the technical content.
func (e *Engine) Utility(ctx context.Context, title, technicalContent string) (UtilityResult, error) {
	prompt, err := UtilityPrompt(title, technicalContent)
	if err != nil {
		return UtilityResult{}, fmt.Errorf("render utility prompt: %w", err)
	}
	out, err := e.generate(ctx, prompt)
	if err != nil {
		return UtilityResult{}, err
	}
	res, err := parseUtility(e.gen.Name(), out.Text)
	res.TokensUsed = out.TokensUsed
	return res, err
}

func (e *Engine) generate(ctx context.Context, prompt string) (llm.Completion, error) {
	out, err := e.gen.Generate(ctx, prompt)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, upstream.ErrService) || errors.Is(err, upstream.ErrFormat) {
		return llm.Completion{}, err
	}
	return llm.Completion{}, &upstream.ServiceError{Provider: e.gen.Name(), Err: err}
}
