package auth

import (
	"context"
	"sync"

	"bookbyline/pkg/models"
)

// MockIssuer implements Issuer for testing purposes
type MockIssuer struct {
	mu    sync.Mutex
	calls int

	Credentials models.Credentials

	// Error injection for testing
	IssueError error
}

// NewMockIssuer creates an issuer returning a fixed, complete bundle
func NewMockIssuer() *MockIssuer {
	return &MockIssuer{
		Credentials: models.Credentials{
			ConsumerKey:    "mock_consumer_key",
			ConsumerSecret: "mock_consumer_secret",
			AccessKey:      "mock_access_key",
			AccessSecret:   "mock_access_secret",
		},
	}
}

func (m *MockIssuer) Issue(ctx context.Context) (models.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.IssueError != nil {
		return models.Credentials{}, m.IssueError
	}
	return m.Credentials, nil
}

// Calls returns how many times Issue was invoked
func (m *MockIssuer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSource implements ConsumerSource for testing purposes
type MockSource struct {
	Pair  Consumer
	Error error
}

func (m *MockSource) Name() string {
	return "mock"
}

func (m *MockSource) Consumer() (Consumer, error) {
	if m.Error != nil {
		return Consumer{}, m.Error
	}
	if !m.Pair.Valid() {
		return Consumer{}, ErrCredentialsNotFound
	}
	return m.Pair, nil
}
