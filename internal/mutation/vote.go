package mutation

import (
	"context"
	"errors"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/remote"
)

// VoteResult is the committed state of a work after a vote.
type VoteResult struct {
	WorkID     string           `json:"workId"`
	Collection cache.Collection `json:"collection"`
	Vote       int              `json:"vote"`
	Score      int              `json:"score"`
}

// Vote toggles the anonymous client's vote on a work between none and score.
// The write is a transaction whose update is domain.ApplyVote, so concurrent
// voters never leave score out of step with votes. hint names the collection
// holding the work; an empty hint picks admin picks when the work is cached
// there, works otherwise.
func (c *Coordinator) Vote(ctx context.Context, workID string, score int, hint cache.Collection) (*VoteResult, error) {
	if workID == "" {
		return nil, domainerrors.Validation("work id is required")
	}
	if !domain.ValidVote(score) {
		c.metrics.Mutation(KindVote, outcomeRejected)
		return nil, domainerrors.Validationf("vote must be %d or %d", domain.VoteDown, domain.VoteUp)
	}

	coll := c.collectionFor(workID, hint)
	clientID := c.state.ClientID()

	prior, cached := c.cache.WorkIn(coll, workID)
	priorVote := 0
	if cached {
		priorVote = prior.VoteOf(clientID)
		optimistic, _ := domain.ApplyVote(prior, clientID, score)
		c.pointWork(coll, workID, optimistic)
		c.touched()
	}

	snap, err := c.remote.RunTransaction(ctx, remote.Join(string(coll), workID), func(cur remote.Snapshot) (any, error) {
		if !cur.Exists() {
			return nil, remote.ErrAbort
		}
		var w domain.Work
		if err := cur.Decode(&w); err != nil {
			return nil, err
		}
		next, _ := domain.ApplyVote(&w, clientID, score)
		return next, nil
	})
	if err != nil {
		if cached {
			c.restoreVote(coll, workID, clientID, priorVote)
			c.touched()
		}
		if errors.Is(err, remote.ErrAbort) {
			c.metrics.Mutation(KindVote, outcomeNotFound)
			return nil, domainerrors.NotFoundf("work %s not found", workID)
		}
		return nil, c.fail(KindVote, workID, err, "failed to record vote")
	}

	committed := &domain.Work{}
	if err := snap.Decode(committed); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to decode committed vote")
	}
	c.pointWork(coll, workID, committed)
	c.touched()
	c.committed(KindVote, workID)

	return &VoteResult{
		WorkID:     workID,
		Collection: coll,
		Vote:       committed.VoteOf(clientID),
		Score:      committed.Score,
	}, nil
}

func (c *Coordinator) collectionFor(workID string, hint cache.Collection) cache.Collection {
	switch hint {
	case cache.Works, cache.AdminPicks:
		return hint
	}
	if _, ok := c.cache.WorkIn(cache.AdminPicks, workID); ok {
		return cache.AdminPicks
	}
	return cache.Works
}

// restoreVote puts clientID's earlier vote back on whatever record is cached
// now, which may already include other voters' changes.
func (c *Coordinator) restoreVote(coll cache.Collection, workID, clientID string, vote int) {
	current, ok := c.cache.WorkIn(coll, workID)
	if !ok {
		return
	}
	restored := current.Clone()
	if restored.Votes == nil {
		restored.Votes = make(map[string]int)
	}
	if vote == 0 {
		delete(restored.Votes, clientID)
	} else {
		restored.Votes[clientID] = vote
	}
	if len(restored.Votes) == 0 {
		restored.Votes = nil
	}
	restored.Score = restored.SumVotes()
	c.pointWork(coll, workID, restored)
}

func (c *Coordinator) pointWork(coll cache.Collection, workID string, w *domain.Work) {
	if err := c.cache.ApplyPointUpdate(coll, workID, w); err != nil {
		c.logger.Error("failed to apply point update", "collection", coll, "id", workID, "error", err)
	}
}
