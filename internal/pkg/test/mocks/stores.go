package mocks

import (
	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"github.com/stretchr/testify/mock"
)

//TokenStore is a mock
type TokenStore struct {
	mock.Mock
}

//Load is a mocked Load function
func (m *TokenStore) Load() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

//Save is a mocked Save function
func (m *TokenStore) Save(token string) error {
	args := m.Called(token)
	return args.Error(0)
}

//RecipientStore is a mock
type RecipientStore struct {
	mock.Mock
}

//Get is a mocked Get function
func (m *RecipientStore) Get(userID string) (*api.Recipient, error) {
	args := m.Called(userID)
	return mockRecipient(args.Get(0)), args.Error(1)
}

//Save is a mocked Save function
func (m *RecipientStore) Save(r *api.Recipient) error {
	args := m.Called(r)
	return args.Error(0)
}

//List is a mocked List function
func (m *RecipientStore) List() ([]*api.Recipient, error) {
	args := m.Called()
	res, _ := args.Get(0).([]*api.Recipient)
	return res, args.Error(1)
}

func mockRecipient(v interface{}) *api.Recipient {
	res, _ := v.(*api.Recipient)
	return res
}
