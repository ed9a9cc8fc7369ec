/*
Package forward is the best-effort offline forwarding collaborator. When a
message arrives for a user who is away, the original service relayed it to the
user's registered email or phone. This implementation resolves the recipient
and logs what would have been forwarded; the delivery pipeline treats it as
fire-and-forget either way.
*/
package forward

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"retroim/internal/app/user"
	"retroim/internal/pkg/logx"
)

// UserLookup is the slice of the store the forwarder needs.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (user.User, error)
}

// Service decides whether a message needs out-of-band forwarding.
type Service struct {
	users  UserLookup
	logger zerolog.Logger
}

// New constructs a forwarding service over the given user lookup.
func New(users UserLookup) *Service {
	return &Service{
		users:  users,
		logger: logx.Logger().With().Str("component", "forward").Logger(),
	}
}

// ForwardMessageIfNeeded checks the recipient's advertised status and, when
// they are away, records the forward that would have been sent. Errors are
// reported to the caller only for logging; nothing retries.
func (s *Service) ForwardMessageIfNeeded(ctx context.Context, toUserID int64, fromScreenName, content string) error {
	recipient, err := s.users.GetUser(ctx, toUserID)
	if err != nil {
		return fmt.Errorf("resolve forward recipient: %w", err)
	}

	if recipient.Status != user.StatusAway {
		return nil
	}

	// Email/SMS transport is not wired up; this is where it would go.
	s.logger.Info().
		Int64("to_user_id", recipient.ID).
		Str("from_screen_name", fromScreenName).
		Int("content_bytes", len(content)).
		Msg("Recipient is away; message would be forwarded out-of-band")

	return nil
}
