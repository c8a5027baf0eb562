package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type sheetServer struct {
	values  map[string][][]interface{}
	appends map[string][][]interface{}
	options map[string]string
}

func newTestSheet(t *testing.T, values map[string][][]interface{}) (*Sheet, *sheetServer) {
	t.Helper()
	ts := &sheetServer{values: values, appends: map[string][][]interface{}{}, options: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sid/values/")
		if strings.HasSuffix(p, ":append") {
			rng := strings.TrimSuffix(p, ":append")
			var vr sheets.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			ts.appends[rng] = append(ts.appends[rng], vr.Values...)
			ts.options[rng] = r.URL.Query().Get("valueInputOption")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		v, ok := ts.values[p]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"range": p, "values": v})
	}))
	t.Cleanup(srv.Close)
	ss, err := sheets.NewService(context.Background(), option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.Nil(t, err)
	s, err := NewSheet(ss, "sid")
	require.Nil(t, err)
	return s, ts
}

func TestNewSheet_Fail(t *testing.T) {
	_, err := NewSheet(nil, "sid")
	assert.NotNil(t, err)
	_, err = NewSheet(&sheets.Service{}, "")
	assert.NotNil(t, err)
}

func TestConsultants(t *testing.T) {
	s, _ := newTestSheet(t, map[string][][]interface{}{consultantsRange: {
		{"Name", "Email", "Desk", "UserID", "Active", "Channel"},
		{"Killian Dougal", "k@x.com", "Tech", "u1", "TRUE"},
		{"Sean McDermott", "s@x.com", "Sales", "u2", "false", "ch2"},
		{"Short", "x@x.com", "Tech"},
		{"Reece Pearce", "r@x.com", "Tech", "", "true"},
	}})
	res, err := s.Consultants(context.Background())
	require.Nil(t, err)
	require.Equal(t, 3, len(res))
	assert.Equal(t, &api.Consultant{Name: "Killian Dougal", Email: "k@x.com", Desk: "Tech",
		DirectoryUserID: "u1", Active: true}, res["killian dougal"])
	assert.False(t, res["sean mcdermott"].Active)
	assert.Equal(t, "ch2", res["sean mcdermott"].ChannelID)
	assert.True(t, res["reece pearce"].Active)
	assert.Nil(t, res["short"])
}

func TestConsultants_HeaderOnly(t *testing.T) {
	s, _ := newTestSheet(t, map[string][][]interface{}{consultantsRange: {{"Name"}}})
	res, err := s.Consultants(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 0, len(res))
}

func TestConsultants_Fail(t *testing.T) {
	s, _ := newTestSheet(t, map[string][][]interface{}{})
	_, err := s.Consultants(context.Background())
	assert.NotNil(t, err)
}

func TestPrompts(t *testing.T) {
	s, _ := newTestSheet(t, map[string][][]interface{}{promptsRange: {
		{"Desk", "Prompt"},
		{"Default", "default {{transcript_text}}"},
		{"Tech", "tech {{transcript_text}}"},
		{"Broken"},
	}})
	res, err := s.Prompts(context.Background())
	require.Nil(t, err)
	assert.Equal(t, api.Prompts{"Default": "default {{transcript_text}}", "Tech": "tech {{transcript_text}}"}, res)
}

func TestSkipped(t *testing.T) {
	s, ts := newTestSheet(t, nil)
	tm := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	err := s.Skipped(context.Background(), &api.SkipEntry{FileName: "a.pdf", Time: tm, WordCount: 50,
		Reason: api.ReasonTooShort})
	require.Nil(t, err)
	require.Equal(t, 1, len(ts.appends[skippedRange]))
	assert.Equal(t, []interface{}{"a.pdf", "2026-01-20T10:00:00Z", float64(50), "Too short", ""},
		ts.appends[skippedRange][0])
	assert.Equal(t, "RAW", ts.options[skippedRange])
}

func TestFailed(t *testing.T) {
	s, ts := newTestSheet(t, nil)
	tm := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	err := s.Failed(context.Background(), &api.ErrorEntry{FileName: "a.pdf", Time: tm, Error: "olia",
		Stage: "deliver", Consultant: "Killian Dougal"})
	require.Nil(t, err)
	require.Equal(t, 1, len(ts.appends[errorsRange]))
	assert.Equal(t, []interface{}{"a.pdf", "2026-01-20T10:00:00Z", "olia", "deliver", "FALSE", "Killian Dougal"},
		ts.appends[errorsRange][0])
}
