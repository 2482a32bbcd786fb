package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"stayquote/internal/app/commands"
	reservationsapp "stayquote/internal/app/handlers/reservations"
	"stayquote/internal/app/middleware"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
)

// cloudEvent is the envelope the booking service publishes.
type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ReservationFeed applies reservation events to the ledger through the command bus.
type ReservationFeed struct {
	Commands commands.Bus
}

func (f ReservationFeed) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	cmd, err := DecodeReservationEvent(msg.Value)
	if err != nil {
		return err
	}
	_, err = commands.Dispatch[reservationsapp.ApplyEventCommand, *reservationsapp.ApplyEventResult](ctx, f.Commands, cmd)
	if isPermanent(err) {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return err
}

// DecodeReservationEvent reads a CloudEvents JSON message. A trailing ".v1" on
// the type is accepted.
func DecodeReservationEvent(raw []byte) (reservationsapp.ApplyEventCommand, error) {
	var evt cloudEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return reservationsapp.ApplyEventCommand{}, fmt.Errorf("%w: decode envelope: %v", ErrPermanent, err)
	}
	cmd := reservationsapp.ApplyEventCommand{
		EventID: evt.ID,
		Type:    strings.TrimSuffix(evt.Type, ".v1"),
	}
	if err := json.Unmarshal(evt.Data, &cmd.Payload); err != nil {
		return cmd, fmt.Errorf("%w: decode data: %v", ErrPermanent, err)
	}
	return cmd, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, reservationsapp.ErrUnknownEventType) ||
		errors.Is(err, reservation.ErrInvalidStatus) ||
		errors.Is(err, daterange.ErrInvalidRange) ||
		errors.Is(err, daterange.ErrInvalidDateFormat) ||
		errors.Is(err, middleware.ErrValidation)
}

var _ MessageHandler = ReservationFeed{}
