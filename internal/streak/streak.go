// Package streak maintains the consecutive-day engagement counter.
package streak

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/dailyping/internal/domain"
	"github.com/ykvlv/dailyping/internal/metrics"
)

var (
	ErrConflict  = errors.New("streak update lost too many races")
	ErrFutureDay = errors.New("day is after the user's local today")
)

const maxAttempts = 5

// Transition names the change Advance applied.
type Transition string

const (
	Unchanged Transition = "unchanged"
	Extended  Transition = "extended"
	Reset     Transition = "reset"
)

// Advance applies a submission on day d. It is pure and idempotent per day.
// Days at or before the last counted day never move the streak.
func Advance(s domain.Streak, d domain.Day) (domain.Streak, Transition) {
	last := s.LastEntryDay
	if last != nil && d <= *last {
		return s, Unchanged
	}
	tr := Reset
	if last != nil && *last == d.Prev() {
		s.Current++
		tr = Extended
	} else {
		s.Current = 1
	}
	day := d
	s.LastEntryDay = &day
	if s.Current > s.Max {
		s.Max = s.Current
	}
	return s, tr
}

type Store interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateEntry(ctx context.Context, e *domain.Entry) error
	CompareAndSetStreak(ctx context.Context, userID string, old, next domain.Streak) (bool, error)
}

type Service struct {
	store Store
	part  *domain.Partitioner
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, part *domain.Partitioner, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, part: part, log: log, now: time.Now}
}

// Submission is the outcome of OnSubmission.
type Submission struct {
	Day        domain.Day
	Created    bool // false when an entry for the day already existed
	Streak     domain.Streak
	Transition Transition
}

// OnSubmission stores the user's entry for day and advances the streak.
// An empty day means "today" in the user's zone; later days are rejected.
// An existing entry for the day means it was already counted, so the
// streak is left alone.
func (s *Service) OnSubmission(ctx context.Context, userID string, day domain.Day, content string) (Submission, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Submission{}, fmt.Errorf("get user %s: %w", userID, err)
	}

	today := s.part.LocalClock(s.now(), u.Timezone).Day
	if strings.TrimSpace(string(day)) == "" {
		day = today
	} else if day, err = domain.ParseDay(string(day)); err != nil {
		return Submission{}, err
	}
	if day > today {
		return Submission{}, fmt.Errorf("%w: %s > %s", ErrFutureDay, day, today)
	}

	res := Submission{Day: day, Created: true}
	err = s.store.CreateEntry(ctx, &domain.Entry{UserID: userID, Day: day, Content: content})
	switch {
	case errors.Is(err, domain.ErrEntryExists):
		res.Created = false
		res.Streak, res.Transition = u.Streak, Unchanged
		metrics.Streaks.WithLabelValues(string(Unchanged)).Inc()
		return res, nil
	case err != nil:
		return Submission{}, fmt.Errorf("create entry: %w", err)
	}

	cur := u.Streak
	for attempt := 0; attempt < maxAttempts; attempt++ {
		next, tr := Advance(cur, day)
		if tr == Unchanged {
			res.Streak, res.Transition = cur, tr
			metrics.Streaks.WithLabelValues(string(tr)).Inc()
			return res, nil
		}
		ok, err := s.store.CompareAndSetStreak(ctx, userID, cur, next)
		if err != nil {
			return Submission{}, fmt.Errorf("update streak: %w", err)
		}
		if ok {
			res.Streak, res.Transition = next, tr
			metrics.Streaks.WithLabelValues(string(tr)).Inc()
			s.log.Info("streak advanced",
				zap.String("user_id", userID),
				zap.String("day", day.String()),
				zap.String("transition", string(tr)),
				zap.Int("current", next.Current),
				zap.Int("max", next.Max),
			)
			return res, nil
		}

		s.log.Debug("streak changed concurrently, retrying", zap.String("user_id", userID), zap.Int("attempt", attempt+1))
		fresh, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return Submission{}, fmt.Errorf("reload user %s: %w", userID, err)
		}
		cur = fresh.Streak
	}
	return Submission{}, ErrConflict
}
