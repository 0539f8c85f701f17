package worker

import (
	"context"

	"aulas/internal/amqp"
	"aulas/internal/services"
)

// SnapshotPublisher sends snapshot announcements to the message broker.
type SnapshotPublisher interface {
	PublishSnapshotRefreshed(ctx context.Context, msg *amqp.SnapshotRefreshedMessage) error
}

// AMQPNotifier announces every new snapshot on the broker.
type AMQPNotifier struct {
	publisher SnapshotPublisher
}

func NewAMQPNotifier(p SnapshotPublisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: p}
}

// NotifyRefreshed implements services.RefreshNotifier
func (n *AMQPNotifier) NotifyRefreshed(ctx context.Context, snap services.Snapshot) error {
	msg := amqp.NewSnapshotRefreshedMessage(snap.ID,
		len(snap.Dataset.Lessons), len(snap.Dataset.Clients), snap.LoadedAt)
	return n.publisher.PublishSnapshotRefreshed(ctx, msg)
}
