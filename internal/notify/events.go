package notify

import (
	"fmt"

	"github.com/quantfold/limitbot/internal/domain"
)

// Event types emitted by the order service and maintenance jobs. The
// configured event filter matches against these names.
const (
	EventOrderSubmitted = "order.submitted"
	EventOrderMatched   = "order.matched"
	EventOrderRejected  = "order.rejected"
	EventOrderCancelled = "order.cancelled"
	EventAuditArchived  = "audit.archived"
)

// FormatOrderEvent renders a submitted order as a notification title and body.
func FormatOrderEvent(marketSlug string, order domain.OrderRecord, matches []domain.Match) (title, message string) {
	title = fmt.Sprintf("%s %s @ %s", order.Side, marketSlug, order.Price)
	message = fmt.Sprintf(
		"order %s on %s\nside: %s  type: %s\nprice: %s\nmakerAmount: %s\ntakerAmount: %s\nstatus: %s",
		order.ID, marketSlug, order.Side, order.Type,
		order.Price, order.MakerAmount, order.TakerAmount, order.Status,
	)
	if len(matches) > 0 {
		message += fmt.Sprintf("\nmatched immediately: %d fill(s)", len(matches))
	}
	return title, message
}

// FormatRejection renders a failed submission as a notification.
func FormatRejection(marketSlug string, side domain.Side, reason string) (title, message string) {
	title = fmt.Sprintf("REJECTED %s %s", side, marketSlug)
	message = fmt.Sprintf("order on %s rejected\nside: %s\nreason: %s", marketSlug, side, reason)
	return title, message
}
