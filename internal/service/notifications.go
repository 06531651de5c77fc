package service

import (
	"github.com/quantfold/limitbot/internal/domain"
	"github.com/quantfold/limitbot/internal/notify"
)

func notifySubmitted(marketSlug string, result domain.SubmitResult) notification {
	event := notify.EventOrderSubmitted
	if len(result.Matches) > 0 {
		event = notify.EventOrderMatched
	}
	title, message := notify.FormatOrderEvent(marketSlug, result.Order, result.Matches)
	return notification{event: event, title: title, message: message}
}

func notifyRejected(marketSlug string, side domain.Side, err error) notification {
	title, message := notify.FormatRejection(marketSlug, side, err.Error())
	return notification{event: notify.EventOrderRejected, title: title, message: message}
}
