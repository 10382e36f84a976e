package assistant

import (
	"context"
	"strings"

	"github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/pkg/errors"
)

// SubscriptionPlaceholder is replaced by the subscription id in a secret
// name template.
const SubscriptionPlaceholder = "{subscription}"

// ServiceFactory builds a ConversationService authenticated with apiKey.
type ServiceFactory func(apiKey string) (scoring.ConversationService, error)

// CredentialConnector resolves the API key and assistant of a subscription
// and opens a ConversationService with them.
type CredentialConnector struct {
	secrets   scoring.SecretProvider
	directory scoring.AssistantDirectory
	factory   ServiceFactory
	template  string
}

// NewCredentialConnector creates a CredentialConnector. template names the
// secret holding the API key, e.g. "openai-apikey-{subscription}".
func NewCredentialConnector(secrets scoring.SecretProvider, directory scoring.AssistantDirectory, factory ServiceFactory, template string) (*CredentialConnector, error) {
	if secrets == nil || directory == nil || factory == nil {
		return nil, errors.InvalidParam("secrets, directory and factory are required")
	}
	if !strings.Contains(template, SubscriptionPlaceholder) {
		return nil, errors.InvalidParam("secret template must contain " + SubscriptionPlaceholder)
	}
	return &CredentialConnector{secrets: secrets, directory: directory, factory: factory, template: template}, nil
}

// SecretName returns the secret name holding the API key of subscriptionID.
func (c *CredentialConnector) SecretName(subscriptionID string) string {
	return strings.ReplaceAll(c.template, SubscriptionPlaceholder, subscriptionID)
}

// Connect implements Connector.
func (c *CredentialConnector) Connect(ctx context.Context, subscriptionID string) (Session, error) {
	if subscriptionID == "" {
		return Session{}, errors.InputError("subscription id is empty")
	}

	key, err := c.secrets.GetSecret(ctx, c.SecretName(subscriptionID))
	if err != nil {
		return Session{}, errors.Wrap(err, errors.ErrCodeSecretNotFound, "resolve api key").
			WithDetail(subscriptionID)
	}
	if strings.TrimSpace(key) == "" {
		return Session{}, errors.New(errors.ErrCodeSecretNotFound, "api key is empty").WithDetail(subscriptionID)
	}

	assistantID, err := c.directory.GetAssistantID(ctx, subscriptionID)
	if err != nil {
		return Session{}, errors.Wrap(err, errors.ErrCodeSubscriptionNotFound, "resolve assistant").
			WithDetail(subscriptionID)
	}

	svc, err := c.factory(key)
	if err != nil {
		return Session{}, errors.Wrap(err, errors.ErrCodeUpstream, "open conversation service")
	}
	return Session{Service: svc, AssistantID: assistantID}, nil
}

//Personal.AI order the ending
