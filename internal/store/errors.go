package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrClaimNotPending is returned by ConsumeClaim and MarkClaimExpired when
	// the claim left the pending state under a concurrent request (0 rows updated).
	ErrClaimNotPending = errors.New("claim is no longer pending")

	// ErrQueueItemTaken is returned by TakeQueueItem when a concurrent poller
	// already moved the item out of pending (0 rows updated).
	ErrQueueItemTaken = errors.New("queue item already taken")
)
