// Package aggregate combines the three stage scores into an overall score,
// a recommendation and the comprehensive report text.
package aggregate

import (
	"fmt"
	"math"
	"strconv"
)

const (
	DefaultThreshold = 70

	RecommendProceed = "建议继续推进专利申请"
	RecommendImprove = "建议进一步改进技术方案"
)

// Policy controls the recommendation cutoff. The zero value uses the defaults.
type Policy struct {
	Threshold int
	Proceed   string
	Improve   string
}

// Result is the aggregated outcome of one analysis.
type Result struct {
	OverallScore   int
	Recommendation string
	ReportText     string
}

// Aggregate rounds the mean of the three scores half away from zero and
// recommends proceeding when the result meets the threshold.
func (p Policy) Aggregate(novelty, inventiveness, utility float64) (Result, error) {
	for _, s := range []struct {
		name  string
		value float64
	}{
		{"novelty", novelty},
		{"inventiveness", inventiveness},
		{"utility", utility},
	} {
		if math.IsNaN(s.value) || s.value < 0 || s.value > 100 {
			return Result{}, fmt.Errorf("%s score %v is outside 0-100", s.name, s.value)
		}
	}

	overall := int(math.Round((novelty + inventiveness + utility) / 3))
	rec := p.improve()
	if overall >= p.threshold() {
		rec = p.proceed()
	}
	return Result{
		OverallScore:   overall,
		Recommendation: rec,
		ReportText:     ReportText(novelty, inventiveness, utility, overall, rec),
	}, nil
}

// Aggregate applies the default policy.
func Aggregate(novelty, inventiveness, utility float64) (Result, error) {
	return Policy{}.Aggregate(novelty, inventiveness, utility)
}

// ReportText renders the comprehensive report body.
func ReportText(novelty, inventiveness, utility float64, overall int, recommendation string) string {
	return fmt.Sprintf("专利分析综合报告\n\n新颖性：%s分\n创造性：%s分\n实用性：%s分\n\n综合评分：%d分\n\n建议：%s",
		num(novelty), num(inventiveness), num(utility), overall, recommendation)
}

func (p Policy) threshold() int {
	if p.Threshold > 0 {
		return p.Threshold
	}
	return DefaultThreshold
}

func (p Policy) proceed() string {
	if p.Proceed != "" {
		return p.Proceed
	}
	return RecommendProceed
}

func (p Policy) improve() string {
	if p.Improve != "" {
		return p.Improve
	}
	return RecommendImprove
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
