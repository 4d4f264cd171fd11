package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/seatwatch/internal/domain"
)

// SendAlert texts message to every operator number. It attempts all numbers
// and joins the failures.
func SendAlert(ctx context.Context, sender Sender, numbers []string, message string) error {
	if len(numbers) == 0 {
		return errors.New("no alert numbers configured")
	}
	var errs []error
	for _, n := range numbers {
		if err := sender.Send(ctx, n, domain.Message{Subject: "seatwatch alert", Body: message}); err != nil {
			errs = append(errs, fmt.Errorf("alert %s: %w", n, err))
		}
	}
	return errors.Join(errs...)
}
