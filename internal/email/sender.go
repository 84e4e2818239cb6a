package email

import "context"

// EmailSender provides a testable abstraction over SES delivery. An empty
// sender falls back to the client's default From address.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body, sender string) error
}
