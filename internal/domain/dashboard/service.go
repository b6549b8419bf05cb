package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/appointease/appointease/internal/platform/auth"
	"github.com/appointease/appointease/internal/platform/cache"
)

var ErrForbidden = errors.New("not allowed to view this dashboard")

type Service struct {
	repo   Repository
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewService returns a dashboard service. Results are cached per user for
// ttl; a zero ttl or a cache.Noop disables caching.
func NewService(repo Repository, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{repo: repo, cache: c, ttl: ttl, logger: logger, now: time.Now}
}

// Stats returns the dashboard of userID in the shape matching that user's
// role. Cache failures fall back to the database.
func (s *Service) Stats(ctx context.Context, caller *auth.Principal, userID uuid.UUID) (Stats, error) {
	if !caller.CanAccessUser(userID) {
		return nil, ErrForbidden
	}

	role := caller.UserType
	if userID != caller.UserID {
		t, err := s.repo.UserType(ctx, userID)
		if err != nil {
			return nil, err
		}
		role = t
	}

	var dst Stats
	switch role {
	case auth.UserTypeDoctor:
		dst = &DoctorStats{}
	case auth.UserTypeAdmin:
		dst = &AdminStats{}
	default:
		dst = &PatientStats{}
	}

	key := cacheKey(dst.role(), userID)
	if s.ttl > 0 {
		hit, err := s.cache.Get(ctx, key, dst)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		}
		if hit {
			return dst, nil
		}
	}

	today := s.now().UTC().Format("2006-01-02")
	var (
		stats Stats
		err   error
	)
	switch dst.(type) {
	case *DoctorStats:
		stats, err = s.repo.DoctorStats(ctx, userID, today)
	case *AdminStats:
		stats, err = s.repo.AdminStats(ctx, today)
	default:
		stats, err = s.repo.PatientStats(ctx, userID, today)
	}
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 {
		if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
		}
	}
	return stats, nil
}

// Invalidate drops the cached patient and doctor dashboards of userIDs after
// a write changed their counts. Admin dashboards are global and expire by
// TTL only. Failures are logged; the entry then expires on its own.
func (s *Service) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if s.ttl <= 0 || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, 2*len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cacheKey((*PatientStats)(nil).role(), id), cacheKey((*DoctorStats)(nil).role(), id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("stats cache invalidation failed")
	}
}

func cacheKey(role string, userID uuid.UUID) string {
	return role + ":" + userID.String()
}
