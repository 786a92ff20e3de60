package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rl1809/rocketshoes-cart/internal/core/domain"
)

var ErrQueueClosed = errors.New("notice queue closed")

// NoticeQueue buffers notices for delivery by background workers.
type NoticeQueue struct {
	mu     sync.RWMutex
	closed bool
	queue  chan domain.Notice
}

func NewNoticeQueue(queueSize int) *NoticeQueue {
	return &NoticeQueue{
		queue: make(chan domain.Notice, queueSize),
	}
}

func (q *NoticeQueue) Notify(ctx context.Context, notice domain.Notice) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.queue <- notice:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *NoticeQueue) GetNoticeQueue() <-chan domain.Notice {
	return q.queue
}

func (q *NoticeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.queue)
}
