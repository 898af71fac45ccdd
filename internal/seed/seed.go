// Package seed fills a database with demo users, threads and reactions.
// Everything goes through the services, so seeded data obeys the same rules
// as data created over the API. Intended for development only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
	"github.com/Joseph-Bethune/Gabble-Live/internal/service"
)

// DefaultPassword is the password every seeded account logs in with.
const DefaultPassword = "Gabble-Seed-Pass1"

// Options controls how much data Run creates.
type Options struct {
	Users int
	Posts int
	// Seed makes the generated content reproducible. Zero picks a random seed.
	Seed int64
	// ReplyPercent is the chance, 0-100, that a post answers an earlier one.
	ReplyPercent int
}

// Result counts what Run created.
type Result struct {
	UserIDs   []string
	Posts     int
	Replies   int
	Reactions int
}

// Seeder generates content through the auth and post services.
type Seeder struct {
	auth  *service.AuthService
	posts *service.PostService
	faker *gofakeit.Faker
}

func NewSeeder(auth *service.AuthService, posts *service.PostService, seed int64) *Seeder {
	return &Seeder{auth: auth, posts: posts, faker: gofakeit.New(seed)}
}

// Run registers opts.Users accounts and writes opts.Posts posts among them.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users <= 0 {
		return nil, fmt.Errorf("at least one user is required")
	}
	if opts.ReplyPercent <= 0 {
		opts.ReplyPercent = 40
	}

	res := &Result{}
	for i := 0; i < opts.Users; i++ {
		session, err := s.registerUser(ctx, i)
		if err != nil {
			return res, fmt.Errorf("seed user %d: %w", i, err)
		}
		res.UserIDs = append(res.UserIDs, session.UserID)
	}
	observability.Logger.InfoContext(ctx, "seeded users", slog.Int("count", len(res.UserIDs)))

	var open []string
	for i := 0; i < opts.Posts; i++ {
		author := s.faker.RandomString(res.UserIDs)
		in := service.CreatePostInput{
			UserID:  author,
			Message: s.faker.Paragraph(1, s.faker.Number(1, 4), s.faker.Number(6, 14), " "),
			Tags:    s.tags(),
		}
		if s.faker.Number(1, 10) == 1 {
			closed := false
			in.AcceptsDirectReplies = &closed
		}
		if len(open) > 0 && s.faker.Number(1, 100) <= opts.ReplyPercent {
			in.ResponseTo = s.faker.RandomString(open)
		}

		post, err := s.posts.CreatePost(ctx, in)
		if err != nil {
			return res, fmt.Errorf("seed post %d: %w", i, err)
		}
		res.Posts++
		if post.ResponseTo != nil {
			res.Replies++
		}
		if post.AcceptsDirectReplies {
			open = append(open, post.ID)
		}

		n, err := s.react(ctx, post.ID, res.UserIDs)
		if err != nil {
			return res, err
		}
		res.Reactions += n
	}

	observability.Logger.InfoContext(ctx, "seeded posts",
		slog.Int("posts", res.Posts),
		slog.Int("replies", res.Replies),
		slog.Int("reactions", res.Reactions),
	)
	return res, nil
}

func (s *Seeder) registerUser(ctx context.Context, i int) (*service.Session, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		session, err := s.auth.Register(ctx, service.RegisterInput{
			Email:       fmt.Sprintf("seed%d.%d.%s", i, attempt, strings.ToLower(s.faker.Email())),
			Password:    DefaultPassword,
			DisplayName: displayName(s.faker.Username(), i, attempt),
		})
		if err == nil {
			return session, nil
		}
		if !models.IsCode(err, models.CodeConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// react has a random handful of users like or dislike postID.
func (s *Seeder) react(ctx context.Context, postID string, users []string) (int, error) {
	count := s.faker.Number(0, min(len(users), 5))
	voters := make(map[string]struct{}, count)
	for len(voters) < count {
		voters[s.faker.RandomString(users)] = struct{}{}
	}

	for voter := range voters {
		state := models.ReactionLike
		if s.faker.Number(1, 4) == 1 {
			state = models.ReactionDislike
		}
		if _, err := s.posts.ChangeReaction(ctx, service.ChangeReactionInput{
			UserID:   voter,
			PostID:   postID,
			NewState: string(state),
		}); err != nil {
			return 0, fmt.Errorf("seed reaction on %s: %w", postID, err)
		}
	}
	return count, nil
}

func (s *Seeder) tags() []string {
	n := s.faker.Number(0, 3)
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, strings.ToLower(s.faker.HipsterWord()))
	}
	return tags
}

// displayName turns a generated username into a valid, distinct display
// name: letters and digits only, starting with a letter, at most 24 runes.
func displayName(base string, i, attempt int) string {
	var b strings.Builder
	for _, r := range base {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "gab" + name
	}

	suffix := fmt.Sprintf("%d", i)
	if attempt > 0 {
		suffix = fmt.Sprintf("%d_%d", i, attempt)
	}
	if limit := 24 - len(suffix); len(name) > limit {
		name = name[:limit]
	}
	name += suffix
	for len(name) < 4 {
		name += "x"
	}
	return name
}
