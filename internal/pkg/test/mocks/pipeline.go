package mocks

import (
	"context"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"github.com/stretchr/testify/mock"
)

//FileStore is a mock
type FileStore struct {
	mock.Mock
}

//List is a mocked List function
func (m *FileStore) List(ctx context.Context) ([]*api.SourceFile, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]*api.SourceFile)
	return res, args.Error(1)
}

//Download is a mocked Download function
func (m *FileStore) Download(ctx context.Context, f *api.SourceFile) ([]byte, error) {
	args := m.Called(ctx, f)
	res, _ := args.Get(0).([]byte)
	return res, args.Error(1)
}

//MarkProcessed is a mocked MarkProcessed function
func (m *FileStore) MarkProcessed(ctx context.Context, f *api.SourceFile) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

//Directory is a mock
type Directory struct {
	mock.Mock
}

//Consultants is a mocked Consultants function
func (m *Directory) Consultants(ctx context.Context) (api.Consultants, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(api.Consultants)
	return res, args.Error(1)
}

//Prompts is a mocked Prompts function
func (m *Directory) Prompts(ctx context.Context) (api.Prompts, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(api.Prompts)
	return res, args.Error(1)
}

//AuditLog is a mock
type AuditLog struct {
	mock.Mock
}

//Skipped is a mocked Skipped function
func (m *AuditLog) Skipped(ctx context.Context, e *api.SkipEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

//Failed is a mocked Failed function
func (m *AuditLog) Failed(ctx context.Context, e *api.ErrorEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

//Extractor is a mock
type Extractor struct {
	mock.Mock
}

//Extract is a mocked Extract function
func (m *Extractor) Extract(data []byte) *api.Transcript {
	args := m.Called(data)
	res, _ := args.Get(0).(*api.Transcript)
	return res
}

//Summarizer is a mock
type Summarizer struct {
	mock.Mock
}

//Summarize is a mocked Summarize function
func (m *Summarizer) Summarize(ctx context.Context, template, transcript, consultant, candidate string) (string, error) {
	args := m.Called(ctx, template, transcript, consultant, candidate)
	return args.String(0), args.Error(1)
}

//Deliverer is a mock
type Deliverer struct {
	mock.Mock
}

//Deliver is a mocked Deliver function
func (m *Deliverer) Deliver(ctx context.Context, c *api.Consultant, card interface{}) (string, error) {
	args := m.Called(ctx, c, card)
	return args.String(0), args.Error(1)
}

//TeamID is a mocked TeamID function
func (m *Deliverer) TeamID() string {
	args := m.Called()
	return args.String(0)
}

//SendToUser is a mocked SendToUser function
func (m *Deliverer) SendToUser(ctx context.Context, userID string, card interface{}) error {
	args := m.Called(ctx, userID, card)
	return args.Error(0)
}

//Publisher is a mock
type Publisher struct {
	mock.Mock
}

//Publish is a mocked Publish function
func (m *Publisher) Publish(ctx context.Context, o *api.Outcome) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

//Alerter is a mock
type Alerter struct {
	mock.Mock
}

//AuthFailed is a mocked AuthFailed function
func (m *Alerter) AuthFailed(ctx context.Context, cause error) error {
	args := m.Called(ctx, cause)
	return args.Error(0)
}

//Recovered is a mocked Recovered function
func (m *Alerter) Recovered() {
	m.Called()
}
