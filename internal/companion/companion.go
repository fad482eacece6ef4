// Package companion is the chat assistant that sits next to the journal. It
// frames the conversation with a fixed persona and, when the journal has a
// forecast, tells the model how the user is expected to feel next.
package companion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrwolf/mood-server/internal/llm"
	"github.com/mrwolf/mood-server/internal/logger"
	"github.com/mrwolf/mood-server/internal/models"
)

// SystemPrompt sets the assistant persona for every conversation
const SystemPrompt = "You are Memory, a friendly assistant. Keep responses short, chat warmly, encourage positivity, and don’t give medical advice."

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxMessages bounds how much history a client may replay per request
const maxMessages = 50

// ErrInvalidConversation is returned for malformed message lists
var ErrInvalidConversation = errors.New("invalid conversation")

// Chatter sends a conversation to a language model. *llm.Client implements it.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Forecaster supplies the most recent next-mood prediction. *journal.Service
// implements it.
type Forecaster interface {
	LatestPrediction(ctx context.Context) (*models.Mood, error)
}

type Service struct {
	chat     Chatter
	forecast Forecaster
	log      *logger.Logger
}

// New creates the assistant. forecast may be nil.
func New(chat Chatter, forecast Forecaster, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		chat:     chat,
		forecast: forecast,
		log:      log.Component("companion"),
	}
}

// Reply validates the client's conversation, prepends the system prompt and
// returns the assistant's next message.
func (s *Service) Reply(ctx context.Context, messages []models.ChatMessage) (models.ChatMessage, error) {
	if err := validate(messages); err != nil {
		return models.ChatMessage{}, err
	}

	prompt := []llm.Message{{Role: RoleSystem, Content: SystemPrompt}}
	if hint := s.moodHint(ctx); hint != "" {
		prompt = append(prompt, llm.Message{Role: RoleSystem, Content: hint})
	}
	for _, m := range messages {
		prompt = append(prompt, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := s.chat.Chat(ctx, prompt)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("chat: %w", err)
	}
	s.log.Debug("assistant replied", "turns", len(messages), "mood_hint", len(prompt) > len(messages)+1)
	return models.ChatMessage{Role: RoleAssistant, Content: strings.TrimSpace(reply)}, nil
}

// moodHint is best effort: a journal error only costs the extra context
func (s *Service) moodHint(ctx context.Context) string {
	if s.forecast == nil {
		return ""
	}
	mood, err := s.forecast.LatestPrediction(ctx)
	if err != nil {
		s.log.Warn("failed to load latest prediction", "error", err)
		return ""
	}
	if mood == nil {
		return ""
	}
	return fmt.Sprintf("Based on their journal, the user is predicted to feel %s next. Do not mention the prediction unless they ask.", *mood)
}

func validate(messages []models.ChatMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: messages are required", ErrInvalidConversation)
	}
	if len(messages) > maxMessages {
		return fmt.Errorf("%w: at most %d messages", ErrInvalidConversation, maxMessages)
	}
	for i, m := range messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidConversation, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d is empty", ErrInvalidConversation, i)
		}
	}
	if messages[len(messages)-1].Role != RoleUser {
		return fmt.Errorf("%w: last message must come from the user", ErrInvalidConversation)
	}
	return nil
}
