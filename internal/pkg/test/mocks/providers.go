package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

//TokenProvider is a mock
type TokenProvider struct {
	mock.Mock
}

//Token is a mocked Token function
func (m *TokenProvider) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
