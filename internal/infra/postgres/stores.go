package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"weld-academy-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:academy_users"`

	ID               string         `bun:"id,pk"`
	Name             string         `bun:"name"`
	AvatarURL        string         `bun:"avatar_url"`
	Role             string         `bun:"role"`
	Headline         string         `bun:"headline"`
	Bio              string         `bun:"bio"`
	ChallengeStreak  int            `bun:"challenge_streak"`
	HelpfulPosts     int            `bun:"helpful_posts"`
	Skills           []string       `bun:"skills,array"`
	OnboardingStatus string         `bun:"onboarding_status"`
	Badges           []domain.Badge `bun:"badges,type:jsonb"`
}

func toUserRow(u domain.User) userRow {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	status := string(u.OnboardingStatus)
	if status == "" {
		status = string(domain.OnboardingPending)
	}
	return userRow{
		ID:               u.ID,
		Name:             u.Name,
		AvatarURL:        u.AvatarURL,
		Role:             string(u.Role),
		Headline:         u.Profile.Headline,
		Bio:              u.Profile.Bio,
		ChallengeStreak:  u.Stats.ChallengeStreak,
		HelpfulPosts:     u.Stats.HelpfulPosts,
		Skills:           skills,
		OnboardingStatus: status,
		Badges:           u.Badges.List(),
	}
}

func (r userRow) toDomain() (domain.User, error) {
	badges, err := domain.ParseBadges(r.Badges)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %s: %w", r.ID, err)
	}
	return domain.User{
		ID:               r.ID,
		Name:             r.Name,
		AvatarURL:        r.AvatarURL,
		Role:             domain.Role(r.Role),
		Badges:           badges,
		Profile:          domain.CommunityProfile{Headline: r.Headline, Bio: r.Bio},
		Stats:            domain.UserStats{ChallengeStreak: r.ChallengeStreak, HelpfulPosts: r.HelpfulPosts},
		Skills:           r.Skills,
		OnboardingStatus: domain.OnboardingStatus(r.OnboardingStatus),
	}, nil
}

// UserStore keeps users in the academy_users table.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return row.toDomain()
}

func (s *UserStore) SaveUser(ctx context.Context, user domain.User) error {
	row := toUserRow(user)
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("role = EXCLUDED.role").
		Set("headline = EXCLUDED.headline").
		Set("bio = EXCLUDED.bio").
		Set("challenge_streak = EXCLUDED.challenge_streak").
		Set("helpful_posts = EXCLUDED.helpful_posts").
		Set("skills = EXCLUDED.skills").
		Set("onboarding_status = EXCLUDED.onboarding_status").
		Set("badges = EXCLUDED.badges").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// UpdateBadges locks the user row for the duration of fn.
func (s *UserStore) UpdateBadges(ctx context.Context, userID string, fn func(domain.BadgeSet) (domain.BadgeSet, bool)) (domain.User, error) {
	var user domain.User
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var row userRow
		err := tx.NewSelect().Model(&row).Where("id = ?", userID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		user, err = row.toDomain()
		if err != nil {
			return err
		}
		next, changed := fn(user.Badges)
		if !changed {
			return nil
		}
		user.Badges = next
		row.Badges = next.List()
		if _, err := tx.NewUpdate().Model(&row).Column("badges").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update badges: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

type resultRow struct {
	bun.BaseModel `bun:"table:placement_results"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id"`
	StartedAt   time.Time `bun:"started_at"`
	CompletedAt time.Time `bun:"completed_at"`
	Score       int       `bun:"score"`
	Passed      bool      `bun:"passed"`
	Misses      []string  `bun:"misses,array"`
}

// ResultStore keeps graded results in the placement_results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.QuizResult) error {
	misses := make([]string, 0, len(result.MissedTopics))
	for _, t := range result.MissedTopics {
		misses = append(misses, string(t))
	}
	row := resultRow{
		ID:          result.ID,
		UserID:      result.UserID,
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
		Score:       result.Score,
		Passed:      result.Passed,
		Misses:      misses,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) ListResults(ctx context.Context, userID string) ([]domain.QuizResult, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("completed_at ASC", "id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list results: %w", err)
	}

	out := make([]domain.QuizResult, 0, len(rows))
	for _, row := range rows {
		misses := make([]domain.Topic, 0, len(row.Misses))
		for _, m := range row.Misses {
			misses = append(misses, domain.Topic(m))
		}
		out = append(out, domain.QuizResult{
			ID:           row.ID,
			UserID:       row.UserID,
			StartedAt:    row.StartedAt,
			CompletedAt:  row.CompletedAt,
			Score:        row.Score,
			Passed:       row.Passed,
			MissedTopics: misses,
		})
	}
	return out, nil
}
