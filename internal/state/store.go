package state

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
)

// #region key
// KeyPrefix namespaces policy records in the repository.
const KeyPrefix = "policy:"

// Key returns the repository key for an item.
func Key(itemID string) string {
	return KeyPrefix + itemID
}

// #endregion key

// #region store-struct
// Store is the get-or-create policy store for one offset space.
type Store struct {
	repo   Repository
	space  offsets.Space
	logger *zap.Logger
}

// NewStore builds a Store over repo. logger may be nil.
func NewStore(repo Repository, space offsets.Space, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{repo: repo, space: space, logger: logger}
}

// Space returns the offset space policies are validated against.
func (s *Store) Space() offsets.Space {
	return s.space
}

// #endregion store-struct

// #region get
// Get returns the stored policy for itemID. A missing or unreadable record is
// replaced by a fresh default, which is persisted before returning. Only
// repository I/O errors are returned.
func (s *Store) Get(ctx context.Context, itemID string) (Policy, error) {
	raw, ok, err := s.repo.Get(ctx, Key(itemID))
	if err != nil {
		return Policy{}, fmt.Errorf("load policy %s: %w", itemID, err)
	}
	if ok {
		p, err := Decode(raw, s.space)
		if err == nil {
			return p, nil
		}
		s.logger.Warn("discarding unreadable policy",
			zap.String("item_id", itemID), zap.Error(err))
	}

	p := NewPolicy(s.space)
	if err := s.Save(ctx, itemID, p); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// #endregion get

// #region save
// Save overwrites the stored policy for itemID.
func (s *Store) Save(ctx context.Context, itemID string, p Policy) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := s.repo.Set(ctx, Key(itemID), data); err != nil {
		return fmt.Errorf("save policy %s: %w", itemID, err)
	}
	return nil
}

// #endregion save

// #region reset
// Reset deletes the stored policy; the next Get starts from the prior again.
func (s *Store) Reset(ctx context.Context, itemID string) error {
	if err := s.repo.Delete(ctx, Key(itemID)); err != nil {
		return fmt.Errorf("reset policy %s: %w", itemID, err)
	}
	return nil
}

// #endregion reset
