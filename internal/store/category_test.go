package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/tree"
)

func categoryIDs(cats []models.Category) []uuid.UUID {
	out := make([]uuid.UUID, len(cats))
	for i, c := range cats {
		out[i] = c.ID
	}
	return out
}

func sameIDs(t *testing.T, label string, got []uuid.UUID, want ...uuid.UUID) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d ids, want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d]: got %s, want %s", label, i, got[i], want[i])
		}
	}
}

// checkCategoryForest verifies the stored numbering against parent links.
func checkCategoryForest(t *testing.T, s *CategoryStore) {
	t.Helper()
	ctx := context.Background()
	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	byID := make(map[uuid.UUID]models.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	for _, c := range all {
		if c.Left >= c.Right {
			t.Errorf("%s: lft %d >= rgt %d", c.Title, c.Left, c.Right)
		}
		if c.ParentID == nil {
			if c.Depth != 0 {
				t.Errorf("%s: root depth %d", c.Title, c.Depth)
			}
			continue
		}
		p := byID[*c.ParentID]
		if !bounds(p.Left, p.Right).Contains(bounds(c.Left, c.Right)) {
			t.Errorf("%s [%d,%d] not inside parent %s [%d,%d]", c.Title, c.Left, c.Right, p.Title, p.Left, p.Right)
		}
		if c.Depth != p.Depth+1 {
			t.Errorf("%s: depth %d, parent depth %d", c.Title, c.Depth, p.Depth)
		}
	}
}

func TestCategoryStoreSubtreeListing(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	electronics := newCategory(t, db, "Electronics", nil)
	phones := newCategory(t, db, "Phones", electronics)
	laptops := newCategory(t, db, "Laptops", electronics)

	sub, err := s.Subtree(ctx, electronics.ID)
	if err != nil {
		t.Fatalf("Subtree: %v", err)
	}
	sameIDs(t, "subtree", categoryIDs(sub), electronics.ID, laptops.ID, phones.ID)

	kids, err := s.Children(ctx, &electronics.ID)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	sameIDs(t, "children", categoryIDs(kids), laptops.ID, phones.ID)

	path, err := s.Path(ctx, phones.ID)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	sameIDs(t, "path", categoryIDs(path), electronics.ID, phones.ID)

	got, err := s.FindByID(ctx, phones.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Depth != 1 {
		t.Errorf("depth: got %d, want 1", got.Depth)
	}

	below, err := s.IsDescendant(ctx, phones.ID, electronics.ID)
	if err != nil || !below {
		t.Errorf("IsDescendant(phones, electronics): got %v, %v", below, err)
	}
	self, err := s.IsDescendant(ctx, electronics.ID, electronics.ID)
	if err != nil || self {
		t.Errorf("IsDescendant(electronics, electronics): got %v, %v", self, err)
	}

	checkCategoryForest(t, s)
}

func TestCategoryStoreCreateErrors(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	missing := uuid.New()
	_, err := s.Create(ctx, &models.Category{Title: "Orphan", Slug: unique("orphan"), ParentID: &missing})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing parent: got %v, want ErrNotFound", err)
	}

	c := newCategory(t, db, "Taken", nil)
	_, err = s.Create(ctx, &models.Category{Title: "Taken again", Slug: c.Slug})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("duplicate slug: got %v, want ErrDuplicateSlug", err)
	}
}

func TestCategoryStoreUpdateReordersSiblings(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	root := newCategory(t, db, "Books", nil)
	beta := newCategory(t, db, "Beta", root)
	zeta := newCategory(t, db, "Zeta", root)

	zeta.Title = "Alpha"
	if err := s.Update(ctx, zeta); err != nil {
		t.Fatalf("Update: %v", err)
	}

	kids, err := s.Children(ctx, &root.ID)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	sameIDs(t, "children", categoryIDs(kids), zeta.ID, beta.ID)

	got, err := s.FindByID(ctx, zeta.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Slug != zeta.Slug {
		t.Errorf("slug changed on update: got %q, want %q", got.Slug, zeta.Slug)
	}
	checkCategoryForest(t, s)
}

func TestCategoryStoreMove(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	electronics := newCategory(t, db, "Electronics", nil)
	phones := newCategory(t, db, "Phones", electronics)
	android := newCategory(t, db, "Android", phones)

	if err := s.Move(ctx, electronics.ID, &android.ID); !errors.Is(err, tree.ErrCycle) {
		t.Errorf("move under descendant: got %v, want ErrCycle", err)
	}
	if err := s.Move(ctx, electronics.ID, &electronics.ID); !errors.Is(err, tree.ErrCycle) {
		t.Errorf("move under itself: got %v, want ErrCycle", err)
	}

	if err := s.Move(ctx, phones.ID, nil); err != nil {
		t.Fatalf("Move to root: %v", err)
	}
	below, err := s.IsDescendant(ctx, android.ID, electronics.ID)
	if err != nil {
		t.Fatalf("IsDescendant: %v", err)
	}
	if below {
		t.Error("android still under electronics after moving phones to the root")
	}
	got, err := s.FindByID(ctx, android.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Depth != 1 {
		t.Errorf("android depth: got %d, want 1", got.Depth)
	}
	checkCategoryForest(t, s)
}

func TestCategoryStoreDeletePolicy(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	author := newUser(t, db)
	electronics := newCategory(t, db, "Electronics", nil)
	phones := newCategory(t, db, "Phones", electronics)
	post := newPost(t, db, author, phones, models.PostStatusPublished)

	if err := s.Delete(ctx, electronics.ID, false); !errors.Is(err, tree.ErrNotEmpty) {
		t.Errorf("delete with children: got %v, want ErrNotEmpty", err)
	}
	if err := s.Delete(ctx, electronics.ID, true); !errors.Is(err, models.ErrReferenced) {
		t.Errorf("delete referenced subtree: got %v, want ErrReferenced", err)
	}
	for _, c := range []*models.Category{electronics, phones} {
		got, err := s.FindByID(ctx, c.ID)
		if err != nil {
			t.Fatalf("%s after refused delete: %v", c.Title, err)
		}
		if !ptrEqual(got.ParentID, c.ParentID) {
			t.Errorf("%s parent changed by refused delete", c.Title)
		}
	}
	if sub, err := s.Subtree(ctx, electronics.ID); err != nil || len(sub) != 2 {
		t.Errorf("electronics subtree after refused delete: got %d nodes, %v", len(sub), err)
	}
	kept, err := NewPostStore(db).FindByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("post after refused delete: %v", err)
	}
	if kept.CategoryID != phones.ID {
		t.Errorf("post category: got %s, want %s", kept.CategoryID, phones.ID)
	}

	if _, err := NewPostStore(db).Delete(ctx, post.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if err := s.Delete(ctx, electronics.ID, true); err != nil {
		t.Fatalf("cascade delete: %v", err)
	}
	if _, err := s.FindByID(ctx, phones.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("child after cascade: got %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, electronics.ID, true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
	checkCategoryForest(t, s)
}

func TestCategoryStoreTree(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	root := newCategory(t, db, "Garden", nil)
	newCategory(t, db, "Tools", root)

	roots, err := s.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	for _, r := range roots {
		if r.ID != root.ID {
			continue
		}
		if len(r.Children) != 1 || r.Children[0].Title != "Tools" {
			t.Errorf("children of garden: got %+v", r.Children)
		}
		return
	}
	t.Error("garden not found among roots")
}
