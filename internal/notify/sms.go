package notify

import (
	"context"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type UserLookup interface {
	GetUser(ctx context.Context, id int) (models.User, error)
}

// MessageSender is the part of the Twilio REST API the SMS notifier uses.
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMS texts the notification message to recipients that have a phone number.
type SMS struct {
	users  UserLookup
	sender MessageSender
	from   string
	logger *slog.Logger
}

func NewSMS(users UserLookup, sender MessageSender, from string, logger *slog.Logger) *SMS {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMS{users: users, sender: sender, from: from, logger: logger}
}

// NewTwilioSMS builds an SMS notifier backed by the Twilio REST client.
func NewTwilioSMS(cfg config.Twilio, users UserLookup, logger *slog.Logger) *SMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewSMS(users, client.Api, cfg.FromNumber, logger)
}

func (s *SMS) Notify(ctx context.Context, n models.Notification) {
	user, err := s.users.GetUser(ctx, n.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "sms recipient lookup failed", "user_id", n.UserID, "error", err)
		return
	}
	if user.Phone == "" {
		return
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(user.Phone)
	params.SetFrom(s.from)
	params.SetBody("StackIt: " + n.Message)

	resp, err := s.sender.CreateMessage(params)
	if err != nil {
		s.logger.ErrorContext(ctx, "sms delivery failed", "user_id", n.UserID, "notification_id", n.ID, "error", err)
		return
	}
	if resp != nil && resp.Sid != nil {
		s.logger.InfoContext(ctx, "sms sent", "user_id", n.UserID, "sid", *resp.Sid)
	}
}
