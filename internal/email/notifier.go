package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// EventNotifier turns appointment outbox events into a plain-text email to
// the front-desk inbox.
type EventNotifier struct {
	svc   Service
	inbox string
}

func NewEventNotifier(svc Service, inbox string) *EventNotifier {
	return &EventNotifier{svc: svc, inbox: inbox}
}

func (n *EventNotifier) Notify(ctx context.Context, event *model.OutboxEvent) error {
	if n.inbox == "" {
		return nil
	}

	var apt model.Appointment
	subject := fmt.Sprintf("[scheduler] %s", event.EventType)
	body := string(event.Payload)
	if err := json.Unmarshal(event.Payload, &apt); err == nil && apt.Date != "" {
		body = fmt.Sprintf("%s: %s with %s on %s at %s",
			event.EventType, apt.PatientName, apt.ClinicianName, apt.Date, apt.StartTime)
	}

	return n.svc.Send(ctx, n.inbox, subject, body)
}
