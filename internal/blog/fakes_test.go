package blog

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/rating"
	"github.com/pavuchara/nextgen/internal/store"
	"github.com/pavuchara/nextgen/internal/tree"
)

// The fakes below stand in for the PostgreSQL stores. They report the
// same sentinel errors the stores do.

// slugColumn is the width of the slug columns.
const slugColumn = 255

func checkSlugWidth(s string) error {
	if len(s) > slugColumn {
		return fmt.Errorf("%w: slug is %d characters", models.ErrInvalidValue, len(s))
	}
	return nil
}

type fakeUsers struct {
	users    map[uuid.UUID]*models.User
	profiles map[uuid.UUID]*models.Profile
	slugs    map[string]bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:    map[uuid.UUID]*models.User{},
		profiles: map[uuid.UUID]*models.Profile{},
		slugs:    map[string]bool{},
	}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User, _ string, profileSlug string) (*models.User, error) {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return nil, fmt.Errorf("create user: %w", models.ErrDuplicate)
		}
	}
	if f.slugs[profileSlug] {
		return nil, fmt.Errorf("create user: %w", store.ErrDuplicateSlug)
	}
	created := *u
	created.ID = uuid.New()
	f.users[created.ID] = &created
	f.profiles[created.ID] = &models.Profile{UserID: created.ID, Slug: profileSlug, Avatar: models.DefaultAvatar}
	f.slugs[profileSlug] = true
	return &created, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) profile(p *models.Profile) *models.Profile {
	out := *p
	u := *f.users[p.UserID]
	out.User = &u
	return &out
}

func (f *fakeUsers) FindProfileBySlug(_ context.Context, slug string) (*models.Profile, error) {
	for _, p := range f.profiles {
		if p.Slug == slug {
			return f.profile(p), nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUsers) FindProfile(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return f.profile(p), nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, u *models.User, p *models.Profile) (string, error) {
	current, ok := f.profiles[u.ID]
	if !ok {
		return "", models.ErrNotFound
	}
	previous := current.Avatar
	stored := *u
	f.users[u.ID] = &stored
	current.Avatar, current.Bio = p.Avatar, p.Bio
	return previous, nil
}

// fakeCategories keeps its forest in a tree.Forest, like the store does
// inside its transactions.
type fakeCategories struct {
	forest     *tree.Forest
	rows       map[uuid.UUID]*models.Category
	referenced map[uuid.UUID]bool
	seq        int64
}

func newFakeCategories() *fakeCategories {
	forest, _ := tree.New(tree.ByTitle, nil)
	return &fakeCategories{
		forest:     forest,
		rows:       map[uuid.UUID]*models.Category{},
		referenced: map[uuid.UUID]bool{},
	}
}

func (f *fakeCategories) row(n tree.Node) models.Category {
	c := *f.rows[n.ID]
	c.Left, c.Right, c.Depth = n.Left, n.Right, n.Depth
	return c
}

func (f *fakeCategories) rowsOf(nodes []tree.Node) []models.Category {
	out := make([]models.Category, len(nodes))
	for i, n := range nodes {
		out[i] = f.row(n)
	}
	return out
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	if err := checkSlugWidth(c.Slug); err != nil {
		return nil, err
	}
	for _, existing := range f.rows {
		if existing.Slug == c.Slug {
			return nil, fmt.Errorf("create category: %w", store.ErrDuplicateSlug)
		}
	}
	f.seq++
	created := *c
	created.ID, created.Seq = uuid.New(), f.seq
	if _, err := f.forest.Insert(tree.Node{ID: created.ID, ParentID: created.ParentID, Title: created.Title, Seq: created.Seq}); err != nil {
		return nil, fmt.Errorf("create category: %w: %w", models.ErrNotFound, err)
	}
	f.rows[created.ID] = &created
	n, _ := f.forest.Node(created.ID)
	out := f.row(n)
	return &out, nil
}

func (f *fakeCategories) Update(_ context.Context, c *models.Category) error {
	row, ok := f.rows[c.ID]
	if !ok {
		return models.ErrNotFound
	}
	row.Title, row.Description = c.Title, c.Description
	return nil
}

func (f *fakeCategories) Move(_ context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	if err := f.forest.Reparent(id, parentID); err != nil {
		return err
	}
	f.rows[id].ParentID = parentID
	return nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID, cascade bool) error {
	sub, err := f.forest.Subtree(id)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}
	if !cascade && len(sub) > 1 {
		return tree.ErrNotEmpty
	}
	for _, n := range sub {
		if f.referenced[n.ID] {
			return models.ErrReferenced
		}
	}
	removed, err := f.forest.Delete(id, cascade)
	if err != nil {
		return err
	}
	for _, n := range removed {
		delete(f.rows, n.ID)
	}
	return nil
}

func (f *fakeCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	n, ok := f.forest.Node(id)
	if !ok {
		return nil, models.ErrNotFound
	}
	c := f.row(n)
	return &c, nil
}

func (f *fakeCategories) Children(_ context.Context, parentID *uuid.UUID) ([]models.Category, error) {
	nodes, err := f.forest.Children(parentID)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return f.rowsOf(nodes), nil
}

func (f *fakeCategories) Subtree(_ context.Context, id uuid.UUID) ([]models.Category, error) {
	nodes, err := f.forest.Subtree(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return f.rowsOf(nodes), nil
}

func (f *fakeCategories) Path(_ context.Context, id uuid.UUID) ([]models.Category, error) {
	nodes, err := f.forest.Path(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return f.rowsOf(nodes), nil
}

func (f *fakeCategories) IsDescendant(_ context.Context, id, ancestor uuid.UUID) (bool, error) {
	ok, err := f.forest.IsDescendant(id, ancestor)
	if err != nil {
		return false, fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}
	return ok, nil
}

func (f *fakeCategories) Tree(ctx context.Context) ([]models.Category, error) {
	return f.Children(ctx, nil)
}

type fakePosts struct {
	posts     map[uuid.UUID]*models.Post
	clock     time.Time
	updateErr error
	// staleRandom, when set, is returned by RandomPublishedID in place of
	// a real post, as if the post vanished right after being picked.
	staleRandom uuid.UUID
}

func newFakePosts() *fakePosts {
	return &fakePosts{
		posts: map[uuid.UUID]*models.Post{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakePosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	if err := checkSlugWidth(p.Slug); err != nil {
		return nil, err
	}
	for _, existing := range f.posts {
		if existing.Slug == p.Slug {
			return nil, fmt.Errorf("create post: %w", store.ErrDuplicateSlug)
		}
	}
	f.clock = f.clock.Add(time.Minute)
	created := *p
	created.ID, created.CreatedAt, created.UpdatedAt = uuid.New(), f.clock, f.clock
	if created.Thumbnail == "" {
		created.Thumbnail = models.DefaultThumbnail
	}
	f.posts[created.ID] = &created
	out := created
	return &out, nil
}

func (f *fakePosts) Update(_ context.Context, p *models.Post) (string, error) {
	if f.updateErr != nil {
		return "", f.updateErr
	}
	current, ok := f.posts[p.ID]
	if !ok {
		return "", models.ErrNotFound
	}
	previous := current.Thumbnail
	updated := *p
	updated.Slug, updated.AuthorID = current.Slug, current.AuthorID
	f.posts[p.ID] = &updated
	return previous, nil
}

func (f *fakePosts) Delete(_ context.Context, id uuid.UUID) (string, error) {
	p, ok := f.posts[id]
	if !ok {
		return "", models.ErrNotFound
	}
	delete(f.posts, id)
	return p.Thumbnail, nil
}

func (f *fakePosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakePosts) FindPublished(_ context.Context, idOrSlug string) (*models.Post, error) {
	for _, p := range f.posts {
		if (p.Slug == idOrSlug || p.ID.String() == idOrSlug) && p.IsPublished() {
			out := *p
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakePosts) published() []models.Post {
	var out []models.Post
	for _, p := range f.posts {
		if p.IsPublished() {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b models.Post) int {
		if a.Pinned != b.Pinned {
			if a.Pinned {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return out
}

func (f *fakePosts) ListPublished(_ context.Context, _ store.PostFilter) iter.Seq2[models.Post, error] {
	return func(yield func(models.Post, error) bool) {
		for _, p := range f.published() {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (f *fakePosts) CountPublished(context.Context, store.PostFilter) (int, error) {
	return len(f.published()), nil
}

func (f *fakePosts) RandomPublishedID(context.Context) (uuid.UUID, error) {
	if f.staleRandom != uuid.Nil {
		return f.staleRandom, nil
	}
	list := f.published()
	if len(list) == 0 {
		return uuid.Nil, models.ErrNotFound
	}
	return list[0].ID, nil
}

type fakeComments struct {
	comments map[uuid.UUID]*models.Comment
	order    []uuid.UUID
}

func newFakeComments() *fakeComments {
	return &fakeComments{comments: map[uuid.UUID]*models.Comment{}}
}

func (f *fakeComments) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	if c.ParentID != nil {
		parent, ok := f.comments[*c.ParentID]
		if !ok {
			return nil, models.ErrNotFound
		}
		if parent.PostID != c.PostID {
			return nil, models.ErrInvalidValue
		}
	}
	created := *c
	created.ID = uuid.New()
	f.comments[created.ID] = &created
	f.order = append(f.order, created.ID)
	return &created, nil
}

func (f *fakeComments) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.comments[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeComments) FindByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (f *fakeComments) Thread(_ context.Context, postID uuid.UUID) ([]models.Comment, error) {
	var out []models.Comment
	for _, id := range f.order {
		if c, ok := f.comments[id]; ok && c.PostID == postID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeComments) Children(_ context.Context, id uuid.UUID) ([]models.Comment, error) {
	var out []models.Comment
	for _, cid := range f.order {
		if c, ok := f.comments[cid]; ok && c.ParentID != nil && *c.ParentID == id {
			out = append([]models.Comment{*c}, out...)
		}
	}
	return out, nil
}

func (f *fakeComments) Subtree(_ context.Context, id uuid.UUID) ([]models.Comment, error) {
	root, ok := f.comments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := []models.Comment{*root}
	for _, cid := range f.order {
		if isDesc, _ := f.IsDescendant(context.Background(), cid, id); isDesc {
			out = append(out, *f.comments[cid])
		}
	}
	return out, nil
}

func (f *fakeComments) Path(_ context.Context, id uuid.UUID) ([]models.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := []models.Comment{*c}
	for c.ParentID != nil {
		c = f.comments[*c.ParentID]
		out = append([]models.Comment{*c}, out...)
	}
	return out, nil
}

func (f *fakeComments) IsDescendant(_ context.Context, id, ancestor uuid.UUID) (bool, error) {
	c, ok := f.comments[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if _, ok := f.comments[ancestor]; !ok {
		return false, models.ErrNotFound
	}
	for c.ParentID != nil {
		if *c.ParentID == ancestor {
			return true, nil
		}
		c = f.comments[*c.ParentID]
	}
	return false, nil
}

type voteKey struct{ post, user uuid.UUID }

type fakeRatings struct {
	users   *fakeUsers
	posts   *fakePosts
	votes   map[voteKey]int
	calls   int
	voteErr error
}

func newFakeRatings(users *fakeUsers, posts *fakePosts) *fakeRatings {
	return &fakeRatings{users: users, posts: posts, votes: map[voteKey]int{}}
}

// VoteAsNewUser checks everything that can fail before creating the user,
// which is what a rolled back transaction looks like from outside.
func (f *fakeRatings) VoteAsNewUser(ctx context.Context, u *models.User, password, profileSlug string, postID uuid.UUID, value int) (*models.User, models.VoteResult, error) {
	if f.voteErr != nil {
		return nil, models.VoteResult{}, f.voteErr
	}
	if _, ok := f.posts.posts[postID]; !ok {
		return nil, models.VoteResult{}, fmt.Errorf("vote as new user: post: %w", models.ErrNotFound)
	}
	created, err := f.users.Create(ctx, u, password, profileSlug)
	if err != nil {
		return nil, models.VoteResult{}, err
	}
	res, err := f.Vote(ctx, postID, created.ID, value)
	return created, res, err
}

func (f *fakeRatings) Vote(_ context.Context, postID, userID uuid.UUID, value int) (models.VoteResult, error) {
	if f.voteErr != nil {
		return models.VoteResult{}, f.voteErr
	}
	f.calls++
	key := voteKey{postID, userID}
	var current *int
	if v, ok := f.votes[key]; ok {
		current = &v
	}
	outcome := rating.Decide(current, value)
	if outcome == models.VoteDeleted {
		delete(f.votes, key)
	} else {
		f.votes[key] = value
	}
	sum := 0
	for k, v := range f.votes {
		if k.post == postID {
			sum += v
		}
	}
	return models.VoteResult{Outcome: outcome, Sum: sum}, nil
}

func (f *fakeRatings) ValueFor(_ context.Context, postID, userID uuid.UUID) (*int, error) {
	if v, ok := f.votes[voteKey{postID, userID}]; ok {
		return &v, nil
	}
	return nil, nil
}

type fakeAssets struct {
	mu     sync.Mutex
	queued []string
}

func (f *fakeAssets) Enqueue(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, path)
	return nil
}

// fixture bundles a service with its fakes.
type fixture struct {
	svc        *Service
	users      *fakeUsers
	categories *fakeCategories
	posts      *fakePosts
	comments   *fakeComments
	ratings    *fakeRatings
	assets     *fakeAssets
}

func newFixture() *fixture {
	f := &fixture{
		users:      newFakeUsers(),
		categories: newFakeCategories(),
		posts:      newFakePosts(),
		comments:   newFakeComments(),
		assets:     &fakeAssets{},
	}
	f.ratings = newFakeRatings(f.users, f.posts)
	f.svc = New(Deps{
		Users:           f.users,
		Categories:      f.categories,
		Posts:           f.posts,
		Comments:        f.comments,
		Ratings:         f.ratings,
		Assets:          f.assets,
		MaxSlugAttempts: 5,
	})
	return f
}
