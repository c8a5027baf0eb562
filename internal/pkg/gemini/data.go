package gemini

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type part struct {
	Text    string `json:"text"`
	Thought bool   `json:"thought,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type request struct {
	SystemInstruction *content         `json:"system_instruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type safetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

type candidate struct {
	Content       *content       `json:"content"`
	FinishReason  string         `json:"finishReason"`
	SafetyRatings []safetyRating `json:"safetyRatings"`
}

type response struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

//ErrBlocked indicates the provider refused to answer
var ErrBlocked = errors.New("content blocked")

func (r *response) text() (string, error) {
	if len(r.Candidates) == 0 {
		reason := "Unknown"
		if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
			reason = r.PromptFeedback.BlockReason
		}
		return "", errors.Wrapf(ErrBlocked, "No candidates in response. Block reason: %s", reason)
	}
	c := r.Candidates[0]
	if c.FinishReason == "SAFETY" {
		return "", errors.Wrapf(ErrBlocked, "Blocked by safety filter: %s", ratings(c.SafetyRatings))
	}
	if c.Content == nil || len(c.Content.Parts) == 0 {
		return "", errors.Errorf("Unexpected response structure, finish reason: '%s'", c.FinishReason)
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

func ratings(rs []safetyRating) string {
	res := make([]string, 0, len(rs))
	for _, r := range rs {
		res = append(res, fmt.Sprintf("%s=%s", r.Category, r.Probability))
	}
	return strings.Join(res, ", ")
}
