package email

import (
	"context"
)

// Service sends transactional mail. Delivery is best-effort; the scheduling
// core never calls this directly.
type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}
