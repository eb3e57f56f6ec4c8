package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"patent-backend/internal/analyses"
	"patent-backend/internal/llm"
	"patent-backend/internal/priorart"
	"patent-backend/internal/scoring"
	"patent-backend/internal/usage"
)

type stageReply struct {
	text   string
	tokens int
	err    error
	// block waits for the channel to close, or for ctx to end, before replying.
	block chan struct{}
	// done is closed once the reply has been produced.
	done chan struct{}
}

// scriptedGenerator answers each stage prompt with a fixed reply.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies map[string]stageReply
	prompts map[string]string
}

func newScriptedGenerator(novelty, inventiveness, utility stageReply) *scriptedGenerator {
	return &scriptedGenerator{
		replies: map[string]stageReply{
			StageNovelty:       novelty,
			StageInventiveness: inventiveness,
			StageUtility:       utility,
		},
		prompts: map[string]string{},
	}
}

func (g *scriptedGenerator) Name() string { return "fake" }

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	stage := stageOf(prompt)
	g.mu.Lock()
	g.prompts[stage] = prompt
	reply := g.replies[stage]
	g.mu.Unlock()

	if reply.done != nil {
		defer close(reply.done)
	}
	if reply.block != nil {
		select {
		case <-reply.block:
		case <-ctx.Done():
			return llm.Completion{}, ctx.Err()
		}
	}
	if reply.err != nil {
		return llm.Completion{}, reply.err
	}
	return llm.Completion{Text: reply.text, TokensUsed: reply.tokens}, nil
}

func (g *scriptedGenerator) prompt(stage string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompts[stage]
}

func stageOf(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "作为专利审查专家"):
		return StageNovelty
	case strings.HasPrefix(prompt, "基于新颖性分析结果"):
		return StageInventiveness
	case strings.HasPrefix(prompt, "评估发明的实用性"):
		return StageUtility
	default:
		return "unknown"
	}
}

func ok(text string) stageReply { return stageReply{text: text, tokens: 100} }

const (
	noveltyJSON       = `{"analysis":"具有新颖性","score":80,"innovations":["陶瓷隔膜","锂掺杂"]}`
	inventivenessJSON = `{"analysis":"非显而易见","score":75,"non_obvious":true}`
	utilityJSON       = `{"analysis":"可产业化","score":90,"industrial_applicability":true}`
)

type staticSearcher struct {
	items []priorart.Item
	calls int
	mu    sync.Mutex
}

func (s *staticSearcher) Search(ctx context.Context, query string) []priorart.Item {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.items == nil {
		return []priorart.Item{}
	}
	return s.items
}

type recordingArchiver struct {
	mu   sync.Mutex
	runs []analyses.AnalysisWithReports
}

func (a *recordingArchiver) Archive(ctx context.Context, awr analyses.AnalysisWithReports) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, awr)
	return nil
}

type harness struct {
	orch     *Orchestrator
	store    *analyses.MemoryStore
	ledger   *usage.MemoryLedger
	archiver *recordingArchiver
	search   *staticSearcher
	gen      *scriptedGenerator

	uploadDir string
}

func newHarness(t *testing.T, gen *scriptedGenerator) *harness {
	t.Helper()
	h := &harness{
		store:    analyses.NewMemoryStore(),
		ledger:   usage.NewMemoryLedger(),
		archiver: &recordingArchiver{},
		search:   &staticSearcher{items: []priorart.Item{{Title: "Polymer separator", Snippet: "porous film"}}},
		gen:      gen,
	}
	h.orch = &Orchestrator{
		Search:       h.search,
		Scorer:       scoring.NewEngine(gen),
		Store:        h.store,
		Ledger:       h.ledger,
		Archiver:     h.archiver,
		StageTimeout: time.Second,
	}
	return h
}

var batteryRequest = Request{
	Title:            "Solid-state battery separator",
	Description:      "Ceramic separator for lithium cells",
	TechnicalField:   "Energy storage",
	TechnicalContent: "A ceramic layer doped with lithium.",
	UserID:           "user-1",
}
