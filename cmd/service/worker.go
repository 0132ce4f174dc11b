package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"submission_service/pkg/logging"
)

type reminderSender interface {
	SendDeadlineReminders(ctx context.Context, horizon time.Duration, topic string) (int, error)
}

type ReminderWorker struct {
	sender   reminderSender
	logger   *logging.Logger
	interval time.Duration
	horizon  time.Duration
	topic    string
}

func NewReminderWorker(
	sender reminderSender,
	logger *logging.Logger,
	interval, horizon time.Duration,
	topic string,
) *ReminderWorker {
	return &ReminderWorker{
		sender:   sender,
		logger:   logger,
		interval: interval,
		horizon:  horizon,
		topic:    topic,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Reminder worker stopped")
			return
		case <-ticker.C:
			w.processReminders(ctx)
		}
	}
}

func (w *ReminderWorker) processReminders(ctx context.Context) {
	sent, err := w.sender.SendDeadlineReminders(ctx, w.horizon, w.topic)
	if err != nil {
		w.logger.Error(ctx, "Failed to send deadline reminders", zap.Error(err))
		return
	}
	if sent > 0 {
		w.logger.Info(ctx, "Sent deadline reminders", zap.Int("count", sent))
	}
}
