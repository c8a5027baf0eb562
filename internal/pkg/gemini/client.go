package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"bitbucket.org/airenas/callnotes/internal/pkg/utils"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

//Template placeholders
const (
	TranscriptKey = "{{transcript_text}}"
	RecruiterKey  = "{{recruiter_names}}"
	CandidateKey  = "{{candidate_names}}"
)

const defaultInstruction = "You are a recruitment call analyst for %s. " +
	"Extract candidate information according to the provided template. " +
	"Only include information explicitly stated by the candidate about themselves. " +
	"Recruiter statements must be ignored. " +
	"If information is not explicitly stated, write 'Not stated'. Do not infer or guess."

//Client calls Gemini generateContent endpoint
type Client struct {
	httpclient  *http.Client
	url         string
	key         string
	instruction string
	temperature float64
	maxTokens   int
	bp          backoffProvider
	attempts    prometheus.Counter
}

//NewClient creates a client from config
func NewClient() (*Client, error) {
	res := Client{}
	baseURL, err := utils.GetURLFromConfigOrDefault("gemini.url", "https://generativelanguage.googleapis.com/v1beta")
	if err != nil {
		return nil, err
	}
	res.key, err = utils.GetStringFromConfig("gemini.key")
	if err != nil {
		return nil, err
	}
	model := cmdapp.StringOrDefault("gemini.model", "gemini-2.5-pro")
	res.url = utils.URLJoin(baseURL, "models", model+":generateContent")
	res.instruction = cmdapp.StringOrDefault("gemini.systemInstruction",
		fmt.Sprintf(defaultInstruction, cmdapp.StringOrDefault("gemini.agency", "a recruitment agency")))
	res.temperature = 0.1
	if cmdapp.Config.IsSet("gemini.temperature") {
		res.temperature = cmdapp.Config.GetFloat64("gemini.temperature")
	}
	res.maxTokens = cmdapp.IntOrDefault("gemini.maxOutputTokens", 8000)
	res.httpclient = &http.Client{Timeout: cmdapp.DurationOrDefault("gemini.timeout", 120*time.Second)}
	res.bp = &linearBackOffProvider{step: cmdapp.DurationOrDefault("gemini.backoffStep", 5*time.Second),
		attempts: cmdapp.IntOrDefault("gemini.attempts", 3)}
	cmdapp.Log.Infof("Gemini url: %s", res.url)
	return &res, nil
}

//WithAttemptsCounter sets metric counting requests
func (c *Client) WithAttemptsCounter(m prometheus.Counter) *Client {
	c.attempts = m
	return c
}

//BuildPrompt substitutes placeholders in the template
func BuildPrompt(template, transcript, consultant, candidate string) string {
	res := strings.ReplaceAll(template, TranscriptKey, transcript)
	res = strings.ReplaceAll(res, RecruiterKey, consultant)
	return strings.ReplaceAll(res, CandidateKey, candidate)
}

//Summarize extracts notes from the transcript, retries failed calls
func (c *Client) Summarize(ctx context.Context, template, transcript, consultant, candidate string) (string, error) {
	body, err := json.Marshal(c.newRequest(BuildPrompt(template, transcript, consultant, candidate)))
	if err != nil {
		return "", errors.Wrap(err, "Can't marshal request")
	}
	var res string
	attempt := 0
	op := func() error {
		attempt++
		var err error
		res, err = c.invoke(ctx, body)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	err = backoff.RetryNotify(op, backoff.WithContext(c.bp.Get(), ctx), func(err error, d time.Duration) {
		cmdapp.Log.Warnf("Gemini attempt %d failed: %v. Retrying in %v", attempt, err, d)
	})
	if err != nil {
		return "", errors.Wrapf(err, "Gemini failed after %d attempts", attempt)
	}
	return res, nil
}

func (c *Client) invoke(ctx context.Context, body []byte) (string, error) {
	if c.attempts != nil {
		c.attempts.Inc()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "Can't create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.key)
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return "", errc.Transient(err.Error())
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return "", errors.Wrap(err, "Can't generate content")
	}
	var data response
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", errors.Wrap(err, "Can't decode response")
	}
	return data.text()
}

func (c *Client) newRequest(prompt string) *request {
	return &request{
		SystemInstruction: &content{Parts: []part{{Text: c.instruction}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig:  generationConfig{Temperature: c.temperature, MaxOutputTokens: c.maxTokens},
	}
}
