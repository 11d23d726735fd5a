package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/leadflow/internal/conversation"
	"github.com/wolfman30/leadflow/pkg/logging"
)

// LeadNotifier emails the sales inbox when a lead completes the flow.
type LeadNotifier struct {
	mailer Mailer
	to     string
	logger *logging.Logger
}

// NewLeadNotifier creates a notifier sending to the given inbox.
func NewLeadNotifier(mailer Mailer, to string, logger *logging.Logger) *LeadNotifier {
	if mailer == nil {
		panic("notify: mailer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{mailer: mailer, to: strings.TrimSpace(to), logger: logger}
}

func (n *LeadNotifier) Name() string { return "email" }

// Handle sends the new-lead email for captured leads and ignores other events.
func (n *LeadNotifier) Handle(ctx context.Context, event conversation.Event) error {
	if event.Kind != conversation.EventLeadCaptured {
		return nil
	}
	if event.Lead == nil {
		return errors.New("notify: lead captured event without lead")
	}
	if n.to == "" {
		n.logger.Debug("notify: no recipient configured, skipping lead email")
		return nil
	}
	if err := n.mailer.Deliver(ctx, NewLeadEmail(n.to, event.Lead)); err != nil {
		return fmt.Errorf("notify: send lead email: %w", err)
	}
	return nil
}
