package callnotes

import (
	"context"
	"strings"
	"testing"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/consultant"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"
	"bitbucket.org/airenas/callnotes/internal/pkg/metrics"
	"bitbucket.org/airenas/callnotes/internal/pkg/test/mocks"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testFile = "Killian_Dougal___1_929-229-1016__-__1_949-701-2278-transcript-2026-01-20T13-43-50_000Z.pdf"

type procMocks struct {
	files      *mocks.FileStore
	directory  *mocks.Directory
	audit      *mocks.AuditLog
	extractor  *mocks.Extractor
	summarizer *mocks.Summarizer
	deliverer  *mocks.Deliverer
	publisher  *mocks.Publisher
	alerter    *mocks.Alerter
}

func words(n int) *api.Transcript {
	return &api.Transcript{Text: strings.TrimSpace(strings.Repeat("word ", n)), WordCount: n}
}

func initProcessor(t *testing.T, file string, tr *api.Transcript) (*Processor, *procMocks) {
	t.Helper()
	m := &procMocks{files: &mocks.FileStore{}, directory: &mocks.Directory{}, audit: &mocks.AuditLog{},
		extractor: &mocks.Extractor{}, summarizer: &mocks.Summarizer{}, deliverer: &mocks.Deliverer{},
		publisher: &mocks.Publisher{}, alerter: &mocks.Alerter{}}
	m.directory.On("Consultants", mock.Anything).Return(api.Consultants{
		"killian dougal": {Name: "Killian Dougal", Desk: "Tech", DirectoryUserID: "u1", Active: true},
		"sean mcdermott": {Name: "Sean McDermott", Desk: "Sales", DirectoryUserID: "u2"},
		"reece pearce":   {Name: "Reece Pearce", Desk: "Tech", Active: true, ChannelID: "ch3"},
	}, nil)
	m.directory.On("Prompts", mock.Anything).Return(api.Prompts{"Default": "default", "Tech": "tech"}, nil)
	m.files.On("List", mock.Anything).Return([]*api.SourceFile{{ID: "f1", Name: file}}, nil)
	m.files.On("Download", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
	m.files.On("MarkProcessed", mock.Anything, mock.Anything).Return(nil)
	m.extractor.On("Extract", mock.Anything).Return(tr)
	m.audit.On("Skipped", mock.Anything, mock.Anything).Return(nil)
	m.audit.On("Failed", mock.Anything, mock.Anything).Return(nil)
	m.summarizer.On("Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("notes", nil)
	m.deliverer.On("TeamID").Return("")
	m.deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).Return("chat", nil)
	m.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	m.alerter.On("Recovered").Return()
	m.alerter.On("AuthFailed", mock.Anything, mock.Anything).Return(nil)

	p, err := NewProcessor(m.files, m.directory, m.audit, m.extractor, &consultant.Exact{}, m.summarizer,
		m.deliverer, 300)
	require.Nil(t, err)
	p.WithPublisher(m.publisher).WithAlerter(m.alerter)
	p.now = func() time.Time { return time.Date(2026, 1, 25, 10, 0, 0, 0, time.UTC) }
	return p, m
}

func TestNewProcessor_Fail(t *testing.T) {
	_, err := NewProcessor(nil, nil, nil, nil, nil, nil, nil, 300)
	assert.NotNil(t, err)
	_, m := initProcessor(t, testFile, words(1))
	_, err = NewProcessor(m.files, m.directory, m.audit, m.extractor, &consultant.Exact{}, m.summarizer,
		m.deliverer, -1)
	assert.NotNil(t, err)
}

func TestRunCycle_Delivers(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, &CycleResult{Files: 1, Delivered: 1}, res)
	m.summarizer.AssertNumberOfCalls(t, "Summarize", 1)
	m.summarizer.AssertCalled(t, "Summarize", mock.Anything, "tech", words(500).Text, "Killian Dougal", "929-229-1016")
	m.deliverer.AssertNumberOfCalls(t, "Deliver", 1)
	m.deliverer.AssertCalled(t, "Deliver", mock.Anything, mock.MatchedBy(func(c *api.Consultant) bool {
		return c.DirectoryUserID == "u1"
	}), mock.MatchedBy(func(c *api.Card) bool {
		return c.Body[0].Text == "Call Notes: 929-229-1016" && c.Body[1].Text == "Date: 2026-01-20" &&
			c.Body[2].Text == "notes" && c.Body[3].Text == "Source: "+testFile
	}))
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 1)
	m.audit.AssertNumberOfCalls(t, "Skipped", 0)
	m.audit.AssertNumberOfCalls(t, "Failed", 0)
	m.alerter.AssertNumberOfCalls(t, "Recovered", 1)
}

func TestRunCycle_TooShort(t *testing.T) {
	p, m := initProcessor(t, testFile, words(50))

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, &CycleResult{Files: 1, Skipped: 1}, res)
	m.summarizer.AssertNumberOfCalls(t, "Summarize", 0)
	m.deliverer.AssertNumberOfCalls(t, "Deliver", 0)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 1)
	m.audit.AssertNumberOfCalls(t, "Skipped", 1)
	e := m.audit.Calls[0].Arguments.Get(1).(*api.SkipEntry)
	assert.Equal(t, "Too short", e.Reason)
	assert.Equal(t, 50, e.WordCount)
	assert.Equal(t, testFile, e.FileName)
}

func TestRunCycle_ExtractionFails(t *testing.T) {
	p, m := initProcessor(t, testFile, &api.Transcript{})

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, api.ReasonTooShort, m.audit.Calls[0].Arguments.Get(1).(*api.SkipEntry).Reason)
}

func TestRunCycle_ThresholdIsInclusive(t *testing.T) {
	p, m := initProcessor(t, testFile, words(300))

	res, _ := p.RunCycle(context.Background())

	assert.Equal(t, 1, res.Delivered)
	m.summarizer.AssertNumberOfCalls(t, "Summarize", 1)
}

func testSkip(t *testing.T, file, reason, consultantName string) {
	t.Helper()
	p, m := initProcessor(t, file, words(500))

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, res.Skipped)
	m.summarizer.AssertNumberOfCalls(t, "Summarize", 0)
	m.deliverer.AssertNumberOfCalls(t, "Deliver", 0)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 1)
	e := m.audit.Calls[0].Arguments.Get(1).(*api.SkipEntry)
	assert.Equal(t, reason, e.Reason)
	assert.Equal(t, consultantName, e.Consultant)
}

func TestRunCycle_UnknownConsultant(t *testing.T) {
	testSkip(t, "John_Smith___1_929-229-1016-transcript-2026-01-20.pdf", api.ReasonUnknownConsultant, "")
}

func TestRunCycle_Inactive(t *testing.T) {
	testSkip(t, "Sean_McDermott___1_929-229-1016-transcript-2026-01-20.pdf", api.ReasonInactive, "Sean McDermott")
}

func TestRunCycle_NoTarget(t *testing.T) {
	testSkip(t, "Reece_Pearce___1_929-229-1016-transcript-2026-01-20.pdf", api.ReasonNoTarget, "Reece Pearce")
}

func TestRunCycle_ChannelTarget(t *testing.T) {
	p, m := initProcessor(t, "Reece_Pearce___1_929-229-1016-transcript-2026-01-20.pdf", words(500))
	m.deliverer.ExpectedCalls = nil
	m.deliverer.On("TeamID").Return("team")
	m.deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).Return("channel", nil)

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, res.Delivered)
}

func TestRunCycle_SummarizeFails(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	m.summarizer.ExpectedCalls = nil
	m.summarizer.On("Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errc.Transient("503"))

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, res.Failed)
	m.deliverer.AssertNumberOfCalls(t, "Deliver", 0)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 1)
	m.audit.AssertNumberOfCalls(t, "Failed", 1)
	e := m.audit.Calls[0].Arguments.Get(1).(*api.ErrorEntry)
	assert.Equal(t, StageSummarize, e.Stage)
	assert.Equal(t, "Killian Dougal", e.Consultant)
	assert.Contains(t, e.Error, "503")
	m.alerter.AssertNumberOfCalls(t, "AuthFailed", 0)
}

func TestRunCycle_DeliverAuthFails(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	m.deliverer.ExpectedCalls = nil
	m.deliverer.On("TeamID").Return("")
	m.deliverer.On("Deliver", mock.Anything, mock.Anything, mock.Anything).
		Return("chat", errc.UnrecoverableAuth("invalid_grant"))

	res, err := p.RunCycle(context.Background())

	assert.True(t, errors.Is(err, errc.ErrUnrecoverableAuth))
	assert.Equal(t, 1, res.Failed)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 1)
	assert.Equal(t, StageDeliver, m.audit.Calls[0].Arguments.Get(1).(*api.ErrorEntry).Stage)
	m.alerter.AssertNumberOfCalls(t, "AuthFailed", 1)
	m.alerter.AssertNumberOfCalls(t, "Recovered", 0)
}

func TestRunCycle_AuthFailStopsCycle(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	m.files.ExpectedCalls = nil
	m.files.On("List", mock.Anything).Return([]*api.SourceFile{{ID: "f1", Name: testFile}, {ID: "f2", Name: testFile}}, nil)
	m.files.On("Download", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
	m.files.On("MarkProcessed", mock.Anything, mock.Anything).Return(nil)
	m.summarizer.ExpectedCalls = nil
	m.summarizer.On("Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errc.UnrecoverableAuth("invalid_grant"))

	res, err := p.RunCycle(context.Background())

	assert.True(t, errors.Is(err, errc.ErrUnrecoverableAuth))
	assert.Equal(t, &CycleResult{Files: 1, Failed: 1}, res)
	m.summarizer.AssertNumberOfCalls(t, "Summarize", 1)
	m.files.AssertNumberOfCalls(t, "Download", 1)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 1)
	m.alerter.AssertNumberOfCalls(t, "AuthFailed", 1)
}

func TestRunCycle_AuthCheckRejected(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	tp := &mocks.TokenProvider{}
	tp.On("Token", mock.Anything).Return("", errc.UnrecoverableAuth("invalid_grant"))
	p.WithAuthCheck(tp)

	res, err := p.RunCycle(context.Background())

	assert.True(t, errors.Is(err, errc.ErrUnrecoverableAuth))
	assert.Equal(t, &CycleResult{}, res)
	m.files.AssertNumberOfCalls(t, "Download", 0)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 0)
	m.summarizer.AssertNumberOfCalls(t, "Summarize", 0)
	m.alerter.AssertNumberOfCalls(t, "AuthFailed", 1)
}

func TestRunCycle_AuthCheckTransientContinues(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	tp := &mocks.TokenProvider{}
	tp.On("Token", mock.Anything).Return("", errc.Transient("503"))
	p.WithAuthCheck(tp)

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, res.Delivered)
	m.alerter.AssertNumberOfCalls(t, "AuthFailed", 0)
}

func TestRunCycle_AuthCheckSkippedWithoutFiles(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	m.files.ExpectedCalls = nil
	m.files.On("List", mock.Anything).Return([]*api.SourceFile{}, nil)
	tp := &mocks.TokenProvider{}
	p.WithAuthCheck(tp)

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, &CycleResult{}, res)
	tp.AssertNumberOfCalls(t, "Token", 0)
}

func TestRunCycle_DownloadFails(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	m.files.ExpectedCalls = nil
	m.files.On("List", mock.Anything).Return([]*api.SourceFile{{ID: "f1", Name: testFile}}, nil)
	m.files.On("Download", mock.Anything, mock.Anything).Return(nil, errors.New("404"))
	m.files.On("MarkProcessed", mock.Anything, mock.Anything).Return(nil)

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, res.Failed)
	m.extractor.AssertNumberOfCalls(t, "Extract", 0)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 1)
	assert.Equal(t, StageDownload, m.audit.Calls[0].Arguments.Get(1).(*api.ErrorEntry).Stage)
}

func TestRunCycle_MarkFailsContinues(t *testing.T) {
	p, m := initProcessor(t, testFile, words(50))
	m.files.ExpectedCalls = nil
	m.files.On("List", mock.Anything).Return([]*api.SourceFile{{ID: "f1", Name: "a.pdf"}, {ID: "f2", Name: "b.pdf"}}, nil)
	m.files.On("Download", mock.Anything, mock.Anything).Return([]byte("pdf"), nil)
	m.files.On("MarkProcessed", mock.Anything, mock.Anything).Return(errors.New("403"))

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 2, res.Files)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 2)
}

func TestRunCycle_AuditFailsContinues(t *testing.T) {
	p, m := initProcessor(t, testFile, words(50))
	m.audit.ExpectedCalls = nil
	m.audit.On("Skipped", mock.Anything, mock.Anything).Return(errors.New("quota"))

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, res.Skipped)
	m.files.AssertNumberOfCalls(t, "MarkProcessed", 1)
}

func TestRunCycle_DirectoryFails(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	m.directory.ExpectedCalls = nil
	m.directory.On("Consultants", mock.Anything).Return(nil, errors.New("sheets down"))

	_, err := p.RunCycle(context.Background())

	assert.NotNil(t, err)
	m.files.AssertNumberOfCalls(t, "List", 0)
}

func TestRunCycle_ListFails(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	m.files.ExpectedCalls = nil
	m.files.On("List", mock.Anything).Return(nil, errors.New("drive down"))

	_, err := p.RunCycle(context.Background())

	assert.NotNil(t, err)
	m.files.AssertNumberOfCalls(t, "Download", 0)
}

func TestRunCycle_Cancelled(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunCycle(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	m.files.AssertNumberOfCalls(t, "Download", 0)
}

func TestRunCycle_PublishesOutcome(t *testing.T) {
	p, m := initProcessor(t, testFile, words(50))

	_, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	m.publisher.AssertNumberOfCalls(t, "Publish", 1)
	o := m.publisher.Calls[0].Arguments.Get(1).(*api.Outcome)
	assert.Equal(t, api.StatusSkipped, o.Status)
	assert.Equal(t, api.ReasonTooShort, o.Reason)
	assert.Equal(t, "f1", o.FileID)
	assert.Equal(t, 50, o.WordCount)
	assert.NotEmpty(t, o.ID)
	assert.NotEmpty(t, o.CycleID)
}

func TestRunCycle_PublishFailsIgnored(t *testing.T) {
	p, m := initProcessor(t, testFile, words(500))
	m.publisher.ExpectedCalls = nil
	m.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	res, err := p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, res.Delivered)
}

func TestRunCycle_Metrics(t *testing.T) {
	p, _ := initProcessor(t, testFile, words(500))
	pm, err := metrics.NewPipeline("callnotes_test")
	require.Nil(t, err)
	p.WithMetrics(pm)

	_, err = p.RunCycle(context.Background())

	require.Nil(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(pm.Files.WithLabelValues(api.StatusDelivered)))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.CycleDuration))
}
