/**
 * @description
 * Community collections: pooled contributions toward a shared purpose. Funds
 * sit on the collection ledger until the creator finalizes it, at which point
 * the pool becomes claimable by the creator through the pull-payment vault.
 * Admin payouts can route portions of a still-open pool elsewhere.
 */

package transferengine

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
)

var (
	ErrCollectionNotFound = errors.New("community collection not found")
	ErrCollectionClosed   = errors.New("community collection is closed")
	ErrCollectionExpired  = errors.New("community collection deadline has passed")
	ErrNotCollectionOwner = errors.New("caller did not create this collection")
	ErrPayoutExceedsPool  = errors.New("payout exceeds collected funds")
	ErrEmptyPurpose       = errors.New("collection purpose cannot be empty")
)

// CreateCommunityCollection opens a collection pool. Goal and deadline are
// advisory for contributors; only the deadline is enforced, contributions past
// the goal are accepted.
func (e *Engine) CreateCommunityCollection(creator domain.Address, purpose string, goal *uint256.Int, deadline time.Time) (domain.CommunityCollection, error) {
	if creator.IsZero() {
		return domain.CommunityCollection{}, ErrZeroAddress
	}
	if purpose == "" {
		return domain.CommunityCollection{}, ErrEmptyPurpose
	}
	if goal == nil {
		goal = new(uint256.Int)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	collection := &domain.CommunityCollection{
		ID:        uuid.New(),
		Creator:   creator,
		Purpose:   purpose,
		Goal:      domain.Clone(goal),
		Collected: new(uint256.Int),
		Deadline:  deadline.UTC(),
		Active:    true,
		CreatedAt: e.now().UTC(),
	}
	e.collections[collection.ID] = collection
	return copyCollection(collection), nil
}

// ContributeToCollection moves funds from the contributor's wallet into the
// pool. Contributions carry no transfer fee.
func (e *Engine) ContributeToCollection(contributor domain.Address, collectionID uuid.UUID, amount *uint256.Int) (domain.Contribution, error) {
	if contributor.IsZero() {
		return domain.Contribution{}, ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return domain.Contribution{}, domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	collection, ok := e.collections[collectionID]
	if !ok {
		return domain.Contribution{}, ErrCollectionNotFound
	}
	if !collection.Active {
		return domain.Contribution{}, ErrCollectionClosed
	}
	now := e.now().UTC()
	if !collection.Deadline.IsZero() && now.After(collection.Deadline) {
		return domain.Contribution{}, ErrCollectionExpired
	}
	if err := e.vault.DebitWallet(contributor, amount); err != nil {
		return domain.Contribution{}, err
	}
	collection.Collected.Add(collection.Collected, amount)

	return domain.Contribution{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Contributor:  contributor,
		Amount:       domain.Clone(amount),
		CreatedAt:    now,
	}, nil
}

// FinalizeCommunityCollection closes the pool and credits everything collected
// to the creator's claimable balance. Only the creator may finalize, and a
// collection can be finalized exactly once.
func (e *Engine) FinalizeCommunityCollection(caller domain.Address, collectionID uuid.UUID) (domain.CommunityCollection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	collection, ok := e.collections[collectionID]
	if !ok {
		return domain.CommunityCollection{}, ErrCollectionNotFound
	}
	if collection.Creator != caller {
		return domain.CommunityCollection{}, ErrNotCollectionOwner
	}
	if !collection.Active {
		return domain.CommunityCollection{}, ErrCollectionClosed
	}

	// Close before crediting so a vault failure cannot leave a window where the
	// collection pays out twice.
	collection.Active = false
	if collection.Collected.Sign() > 0 {
		payout := domain.Clone(collection.Collected)
		if err := e.vault.CreditPending(caller, payout); err != nil {
			collection.Active = true
			return domain.CommunityCollection{}, err
		}
		collection.Collected.Clear()
	}
	return copyCollection(collection), nil
}

// AdminPayoutFromCollection routes part of an open pool to a recipient's
// claimable balance, decrementing the collected total rather than zeroing it.
// Requires the admin capability.
func (e *Engine) AdminPayoutFromCollection(auth domain.AuthContext, collectionID uuid.UUID, recipient domain.Address, amount *uint256.Int) (domain.CommunityCollection, error) {
	if err := auth.Require(domain.CapAdmin); err != nil {
		return domain.CommunityCollection{}, err
	}
	if recipient.IsZero() {
		return domain.CommunityCollection{}, ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return domain.CommunityCollection{}, domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	collection, ok := e.collections[collectionID]
	if !ok {
		return domain.CommunityCollection{}, ErrCollectionNotFound
	}
	if !collection.Active {
		return domain.CommunityCollection{}, ErrCollectionClosed
	}
	if amount.Gt(collection.Collected) {
		return domain.CommunityCollection{}, ErrPayoutExceedsPool
	}

	collection.Collected.Sub(collection.Collected, amount)
	if err := e.vault.CreditPending(recipient, amount); err != nil {
		collection.Collected.Add(collection.Collected, amount)
		return domain.CommunityCollection{}, err
	}
	return copyCollection(collection), nil
}

// ExpireDueCollections closes active collections whose deadline has passed and
// credits whatever was collected to the creator. The cron runner calls this.
func (e *Engine) ExpireDueCollections() []domain.CommunityCollection {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	var expired []domain.CommunityCollection
	for _, collection := range e.collections {
		if !collection.Active || collection.Deadline.IsZero() || !now.After(collection.Deadline) {
			continue
		}
		collection.Active = false
		if collection.Collected.Sign() > 0 {
			payout := domain.Clone(collection.Collected)
			if err := e.vault.CreditPending(collection.Creator, payout); err != nil {
				collection.Active = true
				continue
			}
			collection.Collected.Clear()
		}
		expired = append(expired, copyCollection(collection))
	}
	return expired
}

// CommunityCollection returns a copy of one collection.
func (e *Engine) CommunityCollection(collectionID uuid.UUID) (domain.CommunityCollection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	collection, ok := e.collections[collectionID]
	if !ok {
		return domain.CommunityCollection{}, ErrCollectionNotFound
	}
	return copyCollection(collection), nil
}

// RestoreCollection reloads one persisted collection during rehydration.
func (e *Engine) RestoreCollection(collection domain.CommunityCollection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := collection
	c.Goal = domain.Clone(collection.Goal)
	c.Collected = domain.Clone(collection.Collected)
	e.collections[c.ID] = &c
}

func copyCollection(c *domain.CommunityCollection) domain.CommunityCollection {
	out := *c
	out.Goal = domain.Clone(c.Goal)
	out.Collected = domain.Clone(c.Collected)
	return out
}
