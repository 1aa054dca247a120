package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/TabareCasalas/SiGeST-sub000/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail        string `json:"to_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentPath string `json:"attachment_path,omitempty"`
}

// Enviador delivers one email. *infra.Mailer implements it.
type Enviador interface {
	Send(to, subject, body, attachmentPath string) error
}

// EmailWorker sends queued emails through a circuit breaker so a downed SMTP
// relay fails fast and the jobs land in the DLQ for a later re-drive.
type EmailWorker struct {
	mailer Enviador
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(mailer Enviador, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb}
}

func (w *EmailWorker) Handle(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: email payload: %v", errPermanente, err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := w.cb.Execute(func() error {
		return w.mailer.Send(payload.ToEmail, payload.Subject, payload.Body, payload.AttachmentPath)
	})
	if err != nil {
		return fmt.Errorf("email to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Str("subject", payload.Subject).Msg("email_worker: email sent")
	return nil
}
