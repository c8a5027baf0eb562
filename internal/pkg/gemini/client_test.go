package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResp struct {
	code int
	resp string
}

type recordingBackOff struct {
	b     backoff.BackOff
	waits *[]time.Duration
}

func (r *recordingBackOff) NextBackOff() time.Duration {
	d := r.b.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	*r.waits = append(*r.waits, d)
	return 0
}

func (r *recordingBackOff) Reset() {
	r.b.Reset()
}

type recordingProvider struct {
	p     linearBackOffProvider
	waits []time.Duration
}

func (rp *recordingProvider) Get() backoff.BackOff {
	return &recordingBackOff{b: rp.p.Get(), waits: &rp.waits}
}

func initTestServer(t *testing.T, resps []testResp) (*Client, *httptest.Server, *[]string, *recordingProvider) {
	t.Helper()
	reqs := make([]string, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		b, _ := io.ReadAll(req.Body)
		reqs = append(reqs, string(b))
		assert.Equal(t, "key", req.Header.Get("x-goog-api-key"))
		assert.Equal(t, "/models/m:generateContent", req.URL.Path)
		r := resps[len(resps)-1]
		if len(reqs) <= len(resps) {
			r = resps[len(reqs)-1]
		}
		rw.WriteHeader(r.code)
		rw.Write([]byte(r.resp))
	}))
	bp := &recordingProvider{p: linearBackOffProvider{step: 5 * time.Second, attempts: 3}}
	c := &Client{httpclient: server.Client(), url: server.URL + "/models/m:generateContent", key: "key",
		instruction: "instr", temperature: 0.1, maxTokens: 8000, bp: bp}
	return c, server, &reqs, bp
}

func okResp(text string) testResp {
	return testResp{code: 200, resp: `{"candidates":[{"content":{"parts":[{"text":"` + text + `"}]},"finishReason":"STOP"}]}`}
}

func TestSummarize(t *testing.T) {
	c, server, reqs, bp := initTestServer(t, []testResp{okResp("notes")})
	defer server.Close()

	res, err := c.Summarize(context.Background(), "T: {{transcript_text}} R: {{recruiter_names}} C: {{candidate_names}}",
		"text", "Anna", "+1 555")

	require.Nil(t, err)
	assert.Equal(t, "notes", res)
	require.Len(t, *reqs, 1)
	assert.Empty(t, bp.waits)

	var r map[string]interface{}
	require.Nil(t, json.Unmarshal([]byte((*reqs)[0]), &r))
	assert.Equal(t, "instr", r["system_instruction"].(map[string]interface{})["parts"].([]interface{})[0].(map[string]interface{})["text"])
	cnt := r["contents"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "user", cnt["role"])
	assert.Equal(t, "T: text R: Anna C: +1 555", cnt["parts"].([]interface{})[0].(map[string]interface{})["text"])
	gc := r["generationConfig"].(map[string]interface{})
	assert.Equal(t, 0.1, gc["temperature"])
	assert.Equal(t, 8000.0, gc["maxOutputTokens"])
}

func TestSummarize_AlwaysFails(t *testing.T) {
	c, server, reqs, bp := initTestServer(t, []testResp{{code: 500, resp: "err"}})
	defer server.Close()

	_, err := c.Summarize(context.Background(), "{{transcript_text}}", "text", "", "")

	require.NotNil(t, err)
	assert.True(t, errors.Is(err, errc.ErrTransient))
	assert.Len(t, *reqs, 3)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, bp.waits)
}

func TestSummarize_ConnectionFailsIsTransient(t *testing.T) {
	c, server, _, bp := initTestServer(t, []testResp{okResp("notes")})
	server.Close()

	_, err := c.Summarize(context.Background(), "{{transcript_text}}", "text", "", "")

	require.NotNil(t, err)
	assert.True(t, errors.Is(err, errc.ErrTransient))
	assert.Len(t, bp.waits, 2)
}

func TestSummarize_RecoversAfterFailure(t *testing.T) {
	c, server, reqs, bp := initTestServer(t, []testResp{{code: 503}, {code: 200, resp: `{"candidates":[]}`}, okResp("ok")})
	defer server.Close()

	res, err := c.Summarize(context.Background(), "{{transcript_text}}", "text", "", "")

	require.Nil(t, err)
	assert.Equal(t, "ok", res)
	assert.Len(t, *reqs, 3)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, bp.waits)
}

func TestSummarize_Safety(t *testing.T) {
	c, server, reqs, _ := initTestServer(t, []testResp{{code: 200,
		resp: `{"candidates":[{"finishReason":"SAFETY","safetyRatings":[{"category":"HARM","probability":"HIGH"}]}]}`}})
	defer server.Close()

	_, err := c.Summarize(context.Background(), "{{transcript_text}}", "text", "", "")

	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrBlocked))
	assert.Contains(t, err.Error(), "HARM=HIGH")
	assert.Len(t, *reqs, 3)
}

func TestSummarize_BlockReason(t *testing.T) {
	c, server, _, _ := initTestServer(t, []testResp{{code: 200, resp: `{"promptFeedback":{"blockReason":"OTHER"}}`}})
	defer server.Close()

	_, err := c.Summarize(context.Background(), "{{transcript_text}}", "text", "", "")

	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Block reason: OTHER")
}

func TestSummarize_NoParts(t *testing.T) {
	c, server, reqs, _ := initTestServer(t, []testResp{{code: 200, resp: `{"candidates":[{"finishReason":"MAX_TOKENS"}]}`}})
	defer server.Close()

	_, err := c.Summarize(context.Background(), "{{transcript_text}}", "text", "", "")

	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "MAX_TOKENS")
	assert.Len(t, *reqs, 3)
}

func TestSummarize_SkipsThoughts(t *testing.T) {
	c, server, _, _ := initTestServer(t, []testResp{{code: 200,
		resp: `{"candidates":[{"content":{"parts":[{"text":"hm","thought":true},{"text":"a"},{"text":"b"}]}}]}`}})
	defer server.Close()

	res, err := c.Summarize(context.Background(), "{{transcript_text}}", "text", "", "")

	require.Nil(t, err)
	assert.Equal(t, "ab", res)
}

func TestSummarize_Cancelled(t *testing.T) {
	c, server, reqs, _ := initTestServer(t, []testResp{{code: 500}})
	defer server.Close()
	ctx, cf := context.WithCancel(context.Background())
	cf()

	_, err := c.Summarize(ctx, "{{transcript_text}}", "text", "", "")

	require.NotNil(t, err)
	assert.Len(t, *reqs, 0)
}

func TestSummarize_CountsAttempts(t *testing.T) {
	c, server, _, _ := initTestServer(t, []testResp{{code: 500}})
	defer server.Close()
	m := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_attempts"})
	c.WithAttemptsCounter(m)

	c.Summarize(context.Background(), "{{transcript_text}}", "text", "", "")

	assert.Equal(t, 3.0, testutil.ToFloat64(m))
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "a x b x", BuildPrompt("a {{transcript_text}} b {{transcript_text}}", "x", "", ""))
	assert.Equal(t, "no placeholders", BuildPrompt("no placeholders", "x", "y", "z"))
}

func TestLinearBackOff(t *testing.T) {
	b := (&linearBackOffProvider{step: 5 * time.Second, attempts: 4}).Get()
	assert.Equal(t, 5*time.Second, b.NextBackOff())
	assert.Equal(t, 10*time.Second, b.NextBackOff())
	assert.Equal(t, 15*time.Second, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestLinearBackOff_SingleAttempt(t *testing.T) {
	b := (&linearBackOffProvider{step: 5 * time.Second, attempts: 1}).Get()
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
