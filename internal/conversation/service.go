package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/leadflow/pkg/logging"
)

var (
	// ErrTurnInFlight is returned when a session already has a turn being processed.
	ErrTurnInFlight = errors.New("conversation: a turn is already in flight for this session")
	ErrEmptyMessage = errors.New("conversation: message text is required")
)

const maxMessageLength = 2000

// Service ties the session store to the orchestrator and allows at most one
// turn per session at a time. The in-process guard covers one replica; stores
// implementing TurnLocker extend it across replicas.
type Service struct {
	store     SessionStore
	orch      *Orchestrator
	sourceTag string
	logger    *logging.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(store SessionStore, orch *Orchestrator, sourceTag string, logger *logging.Logger) *Service {
	if store == nil {
		panic("conversation: session store required")
	}
	if orch == nil {
		panic("conversation: orchestrator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		orch:      orch,
		sourceTag: sourceTag,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
	}
}

// StartSession creates and stores an idle session with the welcome message.
func (s *Service) StartSession(ctx context.Context) (*Session, error) {
	session, err := NewSession(s.sourceTag)
	if err != nil {
		return nil, err
	}
	session.appendMessage(RoleAssistant, s.orch.Welcome(), nil)
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("session created", "session_id", session.ID)
	return session, nil
}

// Begin starts the capture sequence for an idle session.
func (s *Service) Begin(ctx context.Context, sessionID string) (TurnResult, error) {
	return s.withSession(ctx, sessionID, func(session *Session) TurnResult {
		return s.orch.Start(ctx, session)
	})
}

// Submit handles one visitor message.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	if runes := []rune(text); len(runes) > maxMessageLength {
		text = string(runes[:maxMessageLength])
	}
	return s.withSession(ctx, sessionID, func(session *Session) TurnResult {
		return s.orch.HandleTurn(ctx, session, text)
	})
}

// History returns the stored session.
func (s *Service) History(ctx context.Context, sessionID string) (*Session, error) {
	return s.store.Get(ctx, sessionID)
}

// End tears the session down. An uncompleted lead is discarded.
func (s *Service) End(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("session ended", "session_id", sessionID)
	return nil
}

func (s *Service) withSession(ctx context.Context, sessionID string, fn func(*Session) TurnResult) (TurnResult, error) {
	if !s.acquire(sessionID) {
		return TurnResult{}, ErrTurnInFlight
	}
	defer s.release(sessionID)

	if locker, ok := s.store.(TurnLocker); ok {
		unlock, held, err := locker.LockTurn(ctx, sessionID)
		if err != nil {
			return TurnResult{}, err
		}
		if !held {
			return TurnResult{}, ErrTurnInFlight
		}
		defer unlock()
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	result := fn(session)
	if err := s.store.Save(ctx, session); err != nil {
		return TurnResult{}, fmt.Errorf("conversation: save session: %w", err)
	}
	return result, nil
}

func (s *Service) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *Service) release(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}
