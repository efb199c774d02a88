package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"pvflow/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	Body        string             `json:"body"`
	Attachments []infra.Attachment `json:"attachments,omitempty"`
}

// Sender delivers one mail. *infra.Mailer implements it.
type Sender interface {
	Send(msg infra.Mail) error
}

// EmailWorker processes QueueEmail jobs through the SMTP circuit breaker.
type EmailWorker struct {
	sender Sender
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(sender Sender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb}
}

// Process is a Handler. Returning an error lets the pool retry the job.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// retrying a broken payload will never succeed
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if len(payload.To) == 0 {
		log.Warn().Str("subject", payload.Subject).Msg("email_worker: no recipients, skipping")
		return nil
	}

	msg := infra.Mail{
		To:          payload.To,
		Subject:     payload.Subject,
		Text:        payload.Body,
		Attachments: payload.Attachments,
	}
	if err := w.cb.Execute(func() error { return w.sender.Send(msg) }); err != nil {
		return fmt.Errorf("email_worker: send %q: %w", payload.Subject, err)
	}
	log.Info().Strs("to", payload.To).Str("subject", payload.Subject).Msg("email_worker: mail sent")
	return nil
}
