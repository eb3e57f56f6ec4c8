package analyses

import (
	"math"
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	ReportNovelty       = "novelty"
	ReportInventiveness = "inventiveness"
	ReportUtility       = "utility"
	ReportComprehensive = "comprehensive"
)

// ReportTypes lists every report a completed analysis carries, in pipeline order.
var ReportTypes = []string{ReportNovelty, ReportInventiveness, ReportUtility, ReportComprehensive}

// Metadata holds the technical description supplied with an analysis request.
type Metadata struct {
	TechnicalField   string `json:"technical_field"`
	TechnicalContent string `json:"technical_content"`
}

// Analysis is one invention evaluation and its life-cycle state.
type Analysis struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Metadata     Metadata   `json:"metadata"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Report is one typed result attached to an analysis. Score is a 0-1 fraction.
type Report struct {
	ID         string         `json:"id"`
	AnalysisID string         `json:"analysis_id"`
	Type       string         `json:"report_type"`
	Content    string         `json:"content"`
	Score      float64        `json:"score"`
	Summary    string         `json:"summary,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ScorePercent returns the score on the 0-100 scale, rounded to two decimals.
func (r Report) ScorePercent() float64 {
	return math.Round(r.Score*10000) / 100
}

// NewAnalysis is the input to CreateAnalysis.
type NewAnalysis struct {
	UserID      string
	Title       string
	Description string
	Metadata    Metadata
}

// ReportInput is the input to AppendReport. ScorePercent is on the 0-100 scale.
type ReportInput struct {
	Type         string
	Content      string
	ScorePercent float64
	Summary      string
	Details      map[string]any
}

// AnalysisWithReports is the read model: an analysis plus its reports in insertion order.
type AnalysisWithReports struct {
	Analysis Analysis `json:"analysis"`
	Reports  []Report `json:"reports"`
}

// Report returns the report of the given type, if present.
func (a AnalysisWithReports) Report(reportType string) (Report, bool) {
	for _, r := range a.Reports {
		if r.Type == reportType {
			return r, true
		}
	}
	return Report{}, false
}

// Progress summarizes how far the pipeline has got for one analysis.
type Progress struct {
	AnalysisID       string   `json:"analysis_id"`
	Status           string   `json:"status"`
	Progress         int      `json:"progress"`
	CurrentStep      string   `json:"current_step"`
	CompletedReports []string `json:"completed_reports"`
}

// Progress reports the share of scoring stages with a stored report, as a
// 0-100 integer. A completed analysis is always 100. CurrentStep is the next
// report the pipeline is producing and is empty outside processing.
func (a AnalysisWithReports) Progress() Progress {
	p := Progress{
		AnalysisID:       a.Analysis.ID,
		Status:           a.Analysis.Status,
		CompletedReports: make([]string, 0, len(a.Reports)),
	}
	scored := 0
	for _, r := range a.Reports {
		p.CompletedReports = append(p.CompletedReports, r.Type)
		if r.Type != ReportComprehensive {
			scored++
		}
	}
	stages := len(ReportTypes) - 1
	p.Progress = scored * 100 / stages
	if a.Analysis.Status == StatusCompleted {
		p.Progress = 100
	}
	if a.Analysis.Status == StatusProcessing {
		for _, rt := range ReportTypes {
			if _, ok := a.Report(rt); !ok {
				p.CurrentStep = rt
				break
			}
		}
	}
	return p
}
