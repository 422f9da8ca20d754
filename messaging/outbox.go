package messaging

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"gasflow/store"
)

const (
	drainBatch   = 50
	sentRetained = 7 * 24 * time.Hour
)

// OutboxDrainer periodically sends pending outbox messages and purges old
// acknowledged ones.
type OutboxDrainer struct {
	db       *store.DB
	pub      Publisher
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
}

func NewOutboxDrainer(db *store.DB, pub Publisher, interval time.Duration) *OutboxDrainer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDrainer{
		db:       db,
		pub:      pub,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *OutboxDrainer) Start() {
	go d.run()
}

// Stop ends the drain loop and waits for the current batch to finish.
func (d *OutboxDrainer) Stop() {
	close(d.stopChan)
	<-d.done
}

func (d *OutboxDrainer) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			ctx := context.Background()
			d.Drain(ctx)
			if n, err := d.db.PurgeSentOutbox(ctx, time.Now().Add(-sentRetained)); err != nil {
				log.Printf("outbox: purge: %v", err)
			} else if n > 0 {
				log.Debugf("outbox: purged %d sent messages", n)
			}
		}
	}
}

// Drain publishes one batch of pending messages and returns how many were
// sent. Messages that do not decode as an envelope are acknowledged unsent.
func (d *OutboxDrainer) Drain(ctx context.Context) int {
	msgs, err := d.db.ListPendingOutbox(ctx, drainBatch)
	if err != nil {
		log.Printf("outbox: list pending: %v", err)
		return 0
	}
	sent := 0
	for _, msg := range msgs {
		// A payload no consumer can decode would be retried forever.
		if _, err := DecodeEnvelope(msg.Payload); err != nil {
			log.WithFields(log.Fields{"id": msg.ID, "type": msg.MsgType}).Warnf("outbox: dropping undecodable message: %v", err)
			if err := d.db.AckOutbox(ctx, msg.ID); err != nil {
				log.Printf("outbox: ack %d: %v", msg.ID, err)
			}
			continue
		}
		if err := d.pub.Publish(msg.Topic, msg.Payload); err != nil {
			log.WithFields(log.Fields{"id": msg.ID, "type": msg.MsgType}).Warnf("outbox: publish to %s failed: %v", msg.Topic, err)
			if err := d.db.IncrementOutboxRetries(ctx, msg.ID); err != nil {
				log.Printf("outbox: increment retries %d: %v", msg.ID, err)
			}
			continue
		}
		if err := d.db.AckOutbox(ctx, msg.ID); err != nil {
			log.Printf("outbox: ack %d: %v", msg.ID, err)
			continue
		}
		sent++
	}
	return sent
}
