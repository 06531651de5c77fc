package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/limitbot/internal/domain"
)

type fakeSender struct {
	name   string
	err    error
	titles []string
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.titles = append(f.titles, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifyRespectsEventFilter(t *testing.T) {
	s := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{s}, []string{EventOrderSubmitted}, slog.Default())

	require.NoError(t, n.Notify(context.Background(), EventOrderSubmitted, "submitted", "body"))
	require.NoError(t, n.Notify(context.Background(), EventOrderRejected, "rejected", "body"))

	assert.Equal(t, []string{"submitted"}, s.titles)
}

func TestNotifyEmptyFilterAllowsEverything(t *testing.T) {
	s := &fakeSender{name: "test"}
	n := NewNotifier([]Sender{s}, nil, slog.Default())

	require.NoError(t, n.Notify(context.Background(), EventAuditArchived, "archived", "body"))
	assert.Len(t, s.titles, 1)
}

func TestFanoutContinuesPastFailingSender(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, slog.Default())

	err := n.NotifyAll(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.titles, 1)
}

func TestFormatOrderEvent(t *testing.T) {
	rec := domain.OrderRecord{
		ID:          "ord-1",
		Side:        domain.SideBuy,
		Type:        domain.OrderTypeGTC,
		Price:       "0.50",
		MakerAmount: "5000000",
		TakerAmount: "10000000",
		Status:      domain.OrderStatusLive,
	}
	title, message := FormatOrderEvent("rain-in-nyc", rec, []domain.Match{{}, {}})
	assert.Contains(t, title, "rain-in-nyc")
	assert.Contains(t, message, "ord-1")
	assert.Contains(t, message, "2 fill(s)")
}
