package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
)

type postRepoStub struct {
	createFn            func(context.Context, *models.Post, []string) error
	getByIDFn           func(context.Context, string) (*models.Post, error)
	getByIDsFn          func(context.Context, []string) ([]models.Post, error)
	findByTagsFn        func(context.Context, []string, []string) ([]models.Post, error)
	replaceTagsFn       func(context.Context, string, []string) error
	setReactionFn       func(context.Context, string, string, models.ReactionState) error
	clearReactionFn     func(context.Context, string, string) error
	reactionSummariesFn func(context.Context, []string, string) (map[string]models.ReactionSummary, error)
	replyIDsFn          func(context.Context, []string) (map[string][]string, error)
	listByPosterFn      func(context.Context, string) ([]models.Post, error)
	listReactedByFn     func(context.Context, string, models.ReactionState) ([]models.Post, error)
	listRepliedToByFn   func(context.Context, string) ([]models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post, tags []string) error {
	return s.createFn(ctx, post, tags)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *postRepoStub) FindByTags(ctx context.Context, include, exclude []string) ([]models.Post, error) {
	return s.findByTagsFn(ctx, include, exclude)
}
func (s *postRepoStub) ReplaceTags(ctx context.Context, postID string, tags []string) error {
	return s.replaceTagsFn(ctx, postID, tags)
}
func (s *postRepoStub) SetReaction(ctx context.Context, postID, userID string, kind models.ReactionState) error {
	return s.setReactionFn(ctx, postID, userID, kind)
}
func (s *postRepoStub) ClearReaction(ctx context.Context, postID, userID string) error {
	return s.clearReactionFn(ctx, postID, userID)
}
func (s *postRepoStub) ReactionSummaries(ctx context.Context, postIDs []string, viewerID string) (map[string]models.ReactionSummary, error) {
	return s.reactionSummariesFn(ctx, postIDs, viewerID)
}
func (s *postRepoStub) ReplyIDs(ctx context.Context, postIDs []string) (map[string][]string, error) {
	return s.replyIDsFn(ctx, postIDs)
}
func (s *postRepoStub) ListByPoster(ctx context.Context, userID string) ([]models.Post, error) {
	return s.listByPosterFn(ctx, userID)
}
func (s *postRepoStub) ListReactedBy(ctx context.Context, userID string, kind models.ReactionState) ([]models.Post, error) {
	return s.listReactedByFn(ctx, userID, kind)
}
func (s *postRepoStub) ListRepliedToBy(ctx context.Context, userID string) ([]models.Post, error) {
	return s.listRepliedToByFn(ctx, userID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(context.Context, *models.Post, []string) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) {
			return &models.Post{ID: id, PosterID: "author", AcceptsDirectReplies: true}, nil
		},
		getByIDsFn:      func(context.Context, []string) ([]models.Post, error) { return nil, nil },
		findByTagsFn:    func(context.Context, []string, []string) ([]models.Post, error) { return nil, nil },
		replaceTagsFn:   func(context.Context, string, []string) error { return nil },
		setReactionFn:   func(context.Context, string, string, models.ReactionState) error { return nil },
		clearReactionFn: func(context.Context, string, string) error { return nil },
		reactionSummariesFn: func(context.Context, []string, string) (map[string]models.ReactionSummary, error) {
			return map[string]models.ReactionSummary{}, nil
		},
		replyIDsFn:        func(context.Context, []string) (map[string][]string, error) { return map[string][]string{}, nil },
		listByPosterFn:    func(context.Context, string) ([]models.Post, error) { return nil, nil },
		listReactedByFn:   func(context.Context, string, models.ReactionState) ([]models.Post, error) { return nil, nil },
		listRepliedToByFn: func(context.Context, string) ([]models.Post, error) { return nil, nil },
	}
}

func boolPtr(b bool) *bool { return &b }

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   CreatePostInput
		code string
	}{
		{"no poster", CreatePostInput{Message: "hi"}, models.CodeValidation},
		{"empty message", CreatePostInput{UserID: "u1", Message: "   "}, models.CodeValidation},
		{"message too long", CreatePostInput{UserID: "u1", Message: strings.Repeat("x", models.MaxMessageLength+1)}, models.CodeValidation},
		{"tag too long", CreatePostInput{UserID: "u1", Message: "hi", Tags: []string{strings.Repeat("t", 129)}}, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopPostRepo()
			repo.createFn = func(context.Context, *models.Post, []string) error {
				t.Fatal("create must not be called")
				return nil
			}
			_, err := NewPostService(repo).CreatePost(context.Background(), tt.in)
			assertAppCode(t, err, tt.code)
		})
	}
}

func TestPostService_CreatePost_Replies(t *testing.T) {
	t.Parallel()

	t.Run("missing parent is a validation error", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		_, err := NewPostService(repo).CreatePost(context.Background(), CreatePostInput{
			UserID: "u1", Message: "hi", ResponseTo: "nope",
		})
		assertAppCode(t, err, models.CodeValidation)
	})

	t.Run("parent closed to replies", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
			return &models.Post{ID: id, AcceptsDirectReplies: false}, nil
		}
		_, err := NewPostService(repo).CreatePost(context.Background(), CreatePostInput{
			UserID: "u1", Message: "hi", ResponseTo: "closed",
		})
		assertAppCode(t, err, models.CodeForbidden)
	})

	t.Run("tags are normalized before storing", func(t *testing.T) {
		t.Parallel()
		repo := noopPostRepo()
		var stored []string
		var created *models.Post
		repo.createFn = func(_ context.Context, p *models.Post, tags []string) error {
			p.ID = "new"
			created = p
			stored = tags
			return nil
		}
		_, err := NewPostService(repo).CreatePost(context.Background(), CreatePostInput{
			UserID:               "u1",
			Message:              "hi",
			Tags:                 []string{"go, fiber,,go", " gorm "},
			AcceptsDirectReplies: boolPtr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "fiber", "gorm"}, stored)
		require.NotNil(t, created)
		assert.False(t, created.AcceptsDirectReplies)
		assert.Nil(t, created.ResponseTo)
	})
}

func TestPostService_ChangeReaction_CheckOrder(t *testing.T) {
	t.Parallel()

	missing := func(_ context.Context, id string) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}
	tests := []struct {
		name string
		in   ChangeReactionInput
		code string
	}{
		{"no acting user", ChangeReactionInput{PostID: "p", NewState: "like"}, models.CodeUnauthorized},
		{"bad state beats missing post", ChangeReactionInput{UserID: "u", PostID: "p", NewState: "love"}, models.CodeValidation},
		{"missing post", ChangeReactionInput{UserID: "u", PostID: "p", NewState: "LIKE"}, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopPostRepo()
			repo.getByIDFn = missing
			_, err := NewPostService(repo).ChangeReaction(context.Background(), tt.in)
			assertAppCode(t, err, tt.code)
		})
	}
}

func TestPostService_ChangeTags_CheckOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   ChangeTagsInput
		code string
	}{
		{"no acting user", ChangeTagsInput{PostID: "p", NewTags: []string{"a"}}, models.CodeUnauthorized},
		{"empty after normalization", ChangeTagsInput{UserID: "author", PostID: "p", NewTags: []string{" , "}}, models.CodeValidation},
		{"not the author", ChangeTagsInput{UserID: "intruder", PostID: "p", NewTags: []string{"a"}}, models.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopPostRepo()
			repo.replaceTagsFn = func(context.Context, string, []string) error {
				t.Fatal("replace must not be called")
				return nil
			}
			_, err := NewPostService(repo).ChangeTags(context.Background(), tt.in)
			assertAppCode(t, err, tt.code)
		})
	}
}

func TestPostService_FindPosts_NoCriteria(t *testing.T) {
	t.Parallel()
	_, err := NewPostService(noopPostRepo()).FindPosts(context.Background(), FindPostsInput{
		IncludeTags: []string{" ", ","},
	})
	assert.ErrorIs(t, err, ErrNoSearchCriteria)
}

func TestPostService_Flow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "Alice")
	bob := env.register(t, "bob@example.com", "Bobby")

	p1 := env.createPost(t, alice.UserID, "first", "", "go,fiber")
	p2 := env.createPost(t, bob.UserID, "second", "", "go")
	p3 := env.createPost(t, bob.UserID, "third", p1.ID, "fiber", "gorm")

	t.Run("display form", func(t *testing.T) {
		assert.Equal(t, "Alice", p1.Poster)
		assert.Equal(t, []string{"go", "fiber"}, p1.Tags)
		assert.Nil(t, p1.Responses)
		assert.True(t, p1.AcceptsDirectReplies)
		require.NotNil(t, p3.ResponseTo)
		assert.Equal(t, p1.ID, *p3.ResponseTo)
	})

	t.Run("find by ids keeps request order and skips unknown ids", func(t *testing.T) {
		views, err := env.post.FindPosts(ctx, FindPostsInput{PostIDs: []string{p3.ID, "nope", p1.ID, p3.ID}})
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, p3.ID, views[0].ID)
		assert.Equal(t, p1.ID, views[1].ID)
		assert.Equal(t, []string{p3.ID}, views[1].Responses)
	})

	t.Run("find by tags", func(t *testing.T) {
		views, err := env.post.FindPosts(ctx, FindPostsInput{IncludeTags: []string{"fiber, go"}})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, p1.ID, views[0].ID)

		views, err = env.post.FindPosts(ctx, FindPostsInput{ExcludeTags: []string{"gorm"}})
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, p1.ID, views[0].ID)
		assert.Equal(t, p2.ID, views[1].ID)

		views, err = env.post.FindPosts(ctx, FindPostsInput{IncludeTags: []string{"go"}, ExcludeTags: []string{"fiber"}})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, p2.ID, views[0].ID)
	})

	t.Run("reaction state machine", func(t *testing.T) {
		steps := []struct {
			state           string
			likes, dislikes int64
			liked, disliked bool
		}{
			{"like", 1, 0, true, false},
			{"like", 1, 0, true, false},
			{"Dislike", 0, 1, false, true},
			{"neutral", 0, 0, false, false},
			{"neutral", 0, 0, false, false},
			{"dislike", 0, 1, false, true},
		}
		for _, step := range steps {
			view, err := env.post.ChangeReaction(ctx, ChangeReactionInput{UserID: bob.UserID, PostID: p1.ID, NewState: step.state})
			require.NoError(t, err)
			assert.Equal(t, step.likes, view.Likes, step.state)
			assert.Equal(t, step.dislikes, view.Dislikes, step.state)
			assert.Equal(t, step.liked, view.Liked, step.state)
			assert.Equal(t, step.disliked, view.Disliked, step.state)
		}

		views, err := env.post.FindPosts(ctx, FindPostsInput{PostIDs: []string{p1.ID}, ViewerID: alice.UserID})
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, int64(1), views[0].Dislikes)
		assert.False(t, views[0].Disliked, "viewer flags belong to the viewer")
	})

	t.Run("change tags", func(t *testing.T) {
		_, err := env.post.ChangeTags(ctx, ChangeTagsInput{UserID: bob.UserID, PostID: p1.ID, NewTags: []string{"x"}})
		assertAppCode(t, err, models.CodeForbidden)

		_, err = env.post.ChangeTags(ctx, ChangeTagsInput{UserID: alice.UserID, PostID: "missing", NewTags: []string{"x"}})
		assertAppCode(t, err, models.CodeNotFound)

		view, err := env.post.ChangeTags(ctx, ChangeTagsInput{UserID: alice.UserID, PostID: p1.ID, NewTags: []string{"rust go,rust", "zig"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"rust", "go", "zig"}, view.Tags)
	})

	t.Run("closed posts reject replies", func(t *testing.T) {
		closed, err := env.post.CreatePost(ctx, CreatePostInput{UserID: alice.UserID, Message: "no replies", AcceptsDirectReplies: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, closed.AcceptsDirectReplies)

		_, err = env.post.CreatePost(ctx, CreatePostInput{UserID: bob.UserID, Message: "reply", ResponseTo: closed.ID})
		assertAppCode(t, err, models.CodeForbidden)
	})
}

func TestPostService_ConcurrentReactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.register(t, "author@example.com", "Author")
	post := env.createPost(t, author.UserID, "react to me", "")

	const voters = 8
	ids := make([]string, voters)
	for i := range ids {
		ids[i] = env.register(t, "voter"+string(rune('a'+i))+"@example.com", "Voter"+string(rune('a'+i))).UserID
	}

	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i, id := range ids {
		state := "like"
		if i%2 == 1 {
			state = "dislike"
		}
		wg.Add(1)
		go func(userID, state string) {
			defer wg.Done()
			_, err := env.post.ChangeReaction(ctx, ChangeReactionInput{UserID: userID, PostID: post.ID, NewState: state})
			errs <- err
		}(id, state)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	views, err := env.post.FindPosts(ctx, FindPostsInput{PostIDs: []string{post.ID}})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(voters/2), views[0].Likes)
	assert.Equal(t, int64(voters/2), views[0].Dislikes)
}
