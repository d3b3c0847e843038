package discover

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/google/uuid"
)

// LikedYou кто лайкнул или суперлайкнул пользователя. Нужна функция seeLikedYou.
func (s *Service) LikedYou(ctx context.Context, requesterID uuid.UUID, limit int) ([]domain.PublicUser, error) {
	now := s.Now()

	requester, err := s.UserRepo.GetByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: requester %s not found", domain.ErrUnauthorized, requesterID)
		}
		return nil, fmt.Errorf("failed to get requester: %w", err)
	}
	requester.Normalize(now)

	if !domain.HasFeature(requester, domain.FeatureSeeLikedYou) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFeatureLocked, domain.FeatureSeeLikedYou)
	}

	if limit <= 0 || limit > s.Cfg.MaxLimit {
		limit = defaultLikedYouLimit
	}

	actions, err := s.ActionRepo.ListIncoming(ctx, requesterID, []domain.ActionType{domain.ActionLike, domain.ActionSuperlike}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming likes: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(actions))
	out := make([]domain.PublicUser, 0, len(actions))
	for _, a := range actions {
		if _, ok := seen[a.ActorID]; ok {
			continue
		}
		seen[a.ActorID] = struct{}{}

		actor, err := s.UserRepo.GetByID(ctx, a.ActorID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get liker %s: %w", a.ActorID, err)
		}
		actor.Normalize(now)
		if domain.ResolveVisibility(actor, now).Hidden {
			continue
		}

		c := candidate{user: actor}
		c.distance, c.distanceKnown = domain.CandidateDistance(requester, actor)
		out = append(out, s.project(ctx, c, now))
	}

	s.Log.Debug("liked you listed", "user_id", requesterID, "count", len(out))
	return out, nil
}
