package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"patent-backend/internal/upstream"
)

type noveltyPayload struct {
	Analysis    *string      `json:"analysis"`
	Score       *json.Number `json:"score"`
	Innovations *[]string    `json:"innovations"`
}

type inventivenessPayload struct {
	Analysis   *string      `json:"analysis"`
	Score      *json.Number `json:"score"`
	NonObvious *bool        `json:"non_obvious"`
}

type utilityPayload struct {
	Analysis                *string      `json:"analysis"`
	Score                   *json.Number `json:"score"`
	IndustrialApplicability *bool        `json:"industrial_applicability"`
}

func parseNovelty(provider, raw string) (NoveltyResult, error) {
	var p noveltyPayload
	if err := decode(provider, StageNovelty, raw, &p); err != nil {
		return NoveltyResult{}, err
	}
	analysis, score, err := common(provider, StageNovelty, raw, p.Analysis, p.Score)
	if err != nil {
		return NoveltyResult{}, err
	}
	if p.Innovations == nil {
		return NoveltyResult{}, formatErr(provider, StageNovelty, raw, "innovations is missing")
	}
	innovations := make([]string, 0, len(*p.Innovations))
	for _, s := range *p.Innovations {
		if s = strings.TrimSpace(s); s != "" {
			innovations = append(innovations, s)
		}
	}
	return NoveltyResult{Analysis: analysis, Score: score, Innovations: innovations}, nil
}

func parseInventiveness(provider, raw string) (InventivenessResult, error) {
	var p inventivenessPayload
	if err := decode(provider, StageInventiveness, raw, &p); err != nil {
		return InventivenessResult{}, err
	}
	analysis, score, err := common(provider, StageInventiveness, raw, p.Analysis, p.Score)
	if err != nil {
		return InventivenessResult{}, err
	}
	if p.NonObvious == nil {
		return InventivenessResult{}, formatErr(provider, StageInventiveness, raw, "non_obvious is missing")
	}
	return InventivenessResult{Analysis: analysis, Score: score, NonObvious: *p.NonObvious}, nil
}

func parseUtility(provider, raw string) (UtilityResult, error) {
	var p utilityPayload
	if err := decode(provider, StageUtility, raw, &p); err != nil {
		return UtilityResult{}, err
	}
	analysis, score, err := common(provider, StageUtility, raw, p.Analysis, p.Score)
	if err != nil {
		return UtilityResult{}, err
	}
	if p.IndustrialApplicability == nil {
		return UtilityResult{}, formatErr(provider, StageUtility, raw, "industrial_applicability is missing")
	}
	return UtilityResult{Analysis: analysis, Score: score, IndustrialApplicability: *p.IndustrialApplicability}, nil
}

func decode(provider, stage, raw string, out any) error {
	clean := stripCodeFences(raw)
	if clean == "" {
		return formatErr(provider, stage, raw, "empty response")
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return formatErr(provider, stage, raw, "not valid JSON: "+err.Error())
	}
	return nil
}

func common(provider, stage, raw string, analysis *string, score *json.Number) (string, float64, error) {
	if analysis == nil || strings.TrimSpace(*analysis) == "" {
		return "", 0, formatErr(provider, stage, raw, "analysis is missing")
	}
	if score == nil {
		return "", 0, formatErr(provider, stage, raw, "score is missing")
	}
	v, err := score.Float64()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", 0, formatErr(provider, stage, raw, fmt.Sprintf("score %q is not a number", score.String()))
	}
	if v < 0 || v > 100 {
		return "", 0, formatErr(provider, stage, raw, fmt.Sprintf("score %s is outside 0-100", formatScore(v)))
	}
	return strings.TrimSpace(*analysis), v, nil
}

func formatErr(provider, stage, raw, reason string) error {
	if len(raw) > 512 {
		raw = raw[:512]
	}
	return &upstream.FormatError{Provider: provider, Stage: stage, Reason: reason, Raw: raw}
}

// stripCodeFences removes a surrounding markdown code fence, with or without a language tag.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
