package mutation

import (
	"context"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/sse"
)

// SubmitContact validates a contact form message and stores it unread.
// No session is required. It returns the stored message's key.
func (c *Coordinator) SubmitContact(ctx context.Context, msg domain.ContactMessage) (string, error) {
	if err := c.validator.Validate(msg); err != nil {
		c.metrics.Mutation(KindContact, outcomeRejected)
		return "", err
	}

	msg.Timestamp = remote.ServerTimestamp
	msg.IsRead = false

	key, err := c.remote.Push(ctx, remote.PathContacts, msg)
	if err != nil {
		return "", c.fail(KindContact, remote.PathContacts, err, "failed to send message")
	}

	c.committed(KindContact, key)
	c.notify(sse.LevelSuccess, "message sent")
	return key, nil
}
