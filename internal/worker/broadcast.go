package worker

import (
	"context"
	"log"
)

// Sender delivers one text message to one chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Recipients lists every known user id.
type Recipients interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

type Report struct {
	Attempted int
	Delivered int
	Failed    int
}

type Broadcaster struct {
	Recipients Recipients
	Sender     Sender
}

func NewBroadcaster(recipients Recipients, sender Sender) *Broadcaster {
	return &Broadcaster{
		Recipients: recipients,
		Sender:     sender,
	}
}

// Broadcast sends text to every known user. A failed delivery is logged and skipped;
// only a failure to list recipients is returned as an error.
func (b *Broadcaster) Broadcast(ctx context.Context, text string) (Report, error) {
	ids, err := b.Recipients.ListIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	log.Printf("Running broadcast to %d users...", len(ids))

	var report Report
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		report.Attempted++
		if err := b.Sender.SendText(ctx, id, text); err != nil {
			report.Failed++
			log.Printf("Failed to send broadcast to %d: %v", id, err)
			continue
		}
		report.Delivered++
	}

	log.Printf("Broadcast finished: %d attempted, %d delivered, %d failed", report.Attempted, report.Delivered, report.Failed)
	return report, nil
}
