// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/yomira-auth/internal/platform/constants"
)

// Dispatcher queues messages and delivers them from a single background
// worker. Enqueueing never blocks: a full queue drops the message.
type Dispatcher struct {
	notifier  Notifier
	logger    *slog.Logger
	queue     chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	timeout   time.Duration
	dropped   atomic.Uint64
	closeOnce sync.Once

	// mu orders enqueues before Close marks the dispatcher closed, so the
	// worker's final drain sees every accepted message.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher over notifier with room for size
// pending messages.
func NewDispatcher(notifier Notifier, size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = 1
	}

	dispatcher := &Dispatcher{
		notifier: notifier,
		logger:   logger,
		queue:    make(chan Message, size),
		done:     make(chan struct{}),
		timeout:  constants.NotificationSendTimeout,
	}

	dispatcher.wg.Add(1)
	go dispatcher.run()

	return dispatcher
}

// Send enqueues message. It implements [Notifier] and always returns nil;
// delivery failures are logged by the worker.
func (dispatcher *Dispatcher) Send(_ context.Context, message Message) error {
	dispatcher.mu.RLock()
	defer dispatcher.mu.RUnlock()

	if dispatcher.closed {
		dispatcher.drop(message, "dispatcher_closed")
		return nil
	}

	select {
	case dispatcher.queue <- message:
	default:
		dispatcher.drop(message, "queue_full")
	}
	return nil
}

// Close stops accepting messages, delivers what is queued and waits for the
// worker to exit. It is safe to call more than once.
func (dispatcher *Dispatcher) Close() {
	dispatcher.closeOnce.Do(func() {
		dispatcher.mu.Lock()
		dispatcher.closed = true
		dispatcher.mu.Unlock()

		close(dispatcher.done)
		dispatcher.wg.Wait()
	})
}

// Dropped reports how many messages were discarded.
func (dispatcher *Dispatcher) Dropped() uint64 {
	return dispatcher.dropped.Load()
}

func (dispatcher *Dispatcher) run() {
	defer dispatcher.wg.Done()

	for {
		select {
		case message := <-dispatcher.queue:
			dispatcher.deliver(message)
		case <-dispatcher.done:
			for {
				select {
				case message := <-dispatcher.queue:
					dispatcher.deliver(message)
				default:
					return
				}
			}
		}
	}
}

func (dispatcher *Dispatcher) deliver(message Message) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatcher.timeout)
	defer cancel()

	if err := dispatcher.notifier.Send(ctx, message); err != nil {
		dispatcher.logger.Error("notification_dispatch_failed",
			slog.String("kind", string(message.Kind)),
			slog.String("to", message.To),
			slog.Any("error", err),
		)
	}
}

func (dispatcher *Dispatcher) drop(message Message, reason string) {
	dispatcher.dropped.Add(1)
	dispatcher.logger.Warn("notification_dropped",
		slog.String("kind", string(message.Kind)),
		slog.String("reason", reason),
	)
}
