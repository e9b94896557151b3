package notify

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Dispatcher fans messages out to a pool of sender workers through a
// buffered queue. Enqueueing never blocks: when the queue is full the
// message is dropped and logged, keeping sends fire-and-forget relative
// to the transaction that produced them.
type Dispatcher struct {
	queue  chan Message
	sender Sender
	log    *logrus.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, log *logrus.Logger, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}

	d := &Dispatcher{
		queue:  make(chan Message, buffer),
		sender: sender,
		log:    log,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify enqueues a message for delivery. Failures never propagate to the
// caller.
func (d *Dispatcher) Notify(_ context.Context, msg Message) {
	select {
	case d.queue <- msg:
	default:
		d.log.WithFields(logrus.Fields{
			"recipient": msg.Recipient,
			"subject":   msg.Subject,
		}).Warn("notification queue full, message dropped")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		if err := d.sender.Send(context.Background(), msg); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"recipient": msg.Recipient,
				"subject":   msg.Subject,
			}).Error("notification send failed")
		}
	}
}

// Close drains the queue and stops the workers. Callers must not Notify
// after Close.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}
