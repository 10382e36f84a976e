package assistant

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/pkg/errors"
)

// OpenAIService implements scoring.ConversationService on the OpenAI
// Assistants API.
type OpenAIService struct {
	client *openai.Client
}

// NewOpenAIService creates an OpenAIService for apiKey. An empty baseURL
// selects the public endpoint.
func NewOpenAIService(apiKey, baseURL string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{client: openai.NewClientWithConfig(cfg)}
}

// NewOpenAIServiceFactory returns a ServiceFactory that reuses one client
// per API key.
func NewOpenAIServiceFactory(baseURL string) ServiceFactory {
	var (
		mu    sync.Mutex
		cache = make(map[string]*OpenAIService)
	)
	return func(apiKey string) (scoring.ConversationService, error) {
		if apiKey == "" {
			return nil, errors.InvalidParam("api key is empty")
		}
		mu.Lock()
		defer mu.Unlock()
		svc, ok := cache[apiKey]
		if !ok {
			svc = NewOpenAIService(apiKey, baseURL)
			cache[apiKey] = svc
		}
		return svc, nil
	}
}

func (s *OpenAIService) CreateThread(ctx context.Context) (string, error) {
	th, err := s.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", wrapAPIError(err, "create thread")
	}
	return th.ID, nil
}

func (s *OpenAIService) PostMessage(ctx context.Context, threadID, role, content string) error {
	_, err := s.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: content,
	})
	if err != nil {
		return wrapAPIError(err, "create message")
	}
	return nil
}

func (s *OpenAIService) StartRun(ctx context.Context, threadID, assistantID string) (string, error) {
	run, err := s.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return "", wrapAPIError(err, "create run")
	}
	return run.ID, nil
}

func (s *OpenAIService) GetRunStatus(ctx context.Context, threadID, runID string) (scoring.RunStatus, error) {
	run, err := s.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return "", wrapAPIError(err, "retrieve run")
	}
	return mapRunStatus(string(run.Status)), nil
}

// GetMessages returns the text of the thread messages, newest first.
func (s *OpenAIService) GetMessages(ctx context.Context, threadID string) ([]scoring.Message, error) {
	order := "desc"
	list, err := s.client.ListMessage(ctx, threadID, nil, &order, nil, nil, nil)
	if err != nil {
		return nil, wrapAPIError(err, "list messages")
	}

	out := make([]scoring.Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg := scoring.Message{Role: m.Role}
		for _, c := range m.Content {
			if c.Text != nil && c.Text.Value != "" {
				msg.Text = c.Text.Value
				break
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// mapRunStatus folds the remote run statuses onto RunStatus. Statuses that
// wait on the caller or are winding down count as still running.
func mapRunStatus(s string) scoring.RunStatus {
	switch s {
	case "queued":
		return scoring.RunStatusQueued
	case "in_progress", "requires_action", "cancelling":
		return scoring.RunStatusRunning
	case "completed":
		return scoring.RunStatusCompleted
	case "failed":
		return scoring.RunStatusFailed
	case "incomplete":
		return scoring.RunStatusIncomplete
	case "cancelled":
		return scoring.RunStatusCancelled
	case "expired":
		return scoring.RunStatusExpired
	default:
		return scoring.RunStatusCreated
	}
}

func wrapAPIError(err error, op string) error {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return errors.UpstreamError(op, err).WithDetail(apiErr.Message)
	}
	return errors.UpstreamError(op, err)
}

//Personal.AI order the ending
