package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/leadscore/internal/domain/scoring"
	apperrors "github.com/turtacn/leadscore/pkg/errors"
)

type mapSecrets map[string]string

func (m mapSecrets) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", apperrors.New(apperrors.ErrCodeSecretNotFound, "secret not found").WithDetail(name)
	}
	return v, nil
}

type mapDirectory map[string]string

func (m mapDirectory) GetAssistantID(_ context.Context, sub string) (string, error) {
	v, ok := m[sub]
	if !ok {
		return "", apperrors.New(apperrors.ErrCodeSubscriptionNotFound, "no assistant")
	}
	return v, nil
}

func TestCredentialConnector_Connect(t *testing.T) {
	var gotKey string
	factory := func(key string) (scoring.ConversationService, error) {
		gotKey = key
		return &fakeService{}, nil
	}
	c, err := NewCredentialConnector(
		mapSecrets{"openai-apikey-123-ABC-456": "sk-test"},
		mapDirectory{"123-ABC-456": "asst_42"},
		factory,
		"openai-apikey-{subscription}",
	)
	require.NoError(t, err)

	assert.Equal(t, "openai-apikey-123-ABC-456", c.SecretName("123-ABC-456"))

	sess, err := c.Connect(context.Background(), "123-ABC-456")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", gotKey)
	assert.Equal(t, "asst_42", sess.AssistantID)
	assert.NotNil(t, sess.Service)
}

func TestCredentialConnector_Failures(t *testing.T) {
	factory := func(string) (scoring.ConversationService, error) { return &fakeService{}, nil }
	c, err := NewCredentialConnector(
		mapSecrets{"key-a": "sk-a", "key-blank": "  "},
		mapDirectory{"a": "asst_a"},
		factory,
		"key-{subscription}",
	)
	require.NoError(t, err)

	_, err = c.Connect(context.Background(), "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInput))

	_, err = c.Connect(context.Background(), "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSecretNotFound))

	_, err = c.Connect(context.Background(), "blank")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSecretNotFound))

	c2, err := NewCredentialConnector(mapSecrets{"key-b": "sk-b"}, mapDirectory{}, factory, "key-{subscription}")
	require.NoError(t, err)
	_, err = c2.Connect(context.Background(), "b")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSubscriptionNotFound))
}

func TestNewCredentialConnector_Validates(t *testing.T) {
	factory := func(string) (scoring.ConversationService, error) { return nil, nil }

	_, err := NewCredentialConnector(mapSecrets{}, mapDirectory{}, factory, "static-name")
	assert.Error(t, err)

	_, err = NewCredentialConnector(nil, mapDirectory{}, factory, "k-{subscription}")
	assert.Error(t, err)
}

//Personal.AI order the ending
