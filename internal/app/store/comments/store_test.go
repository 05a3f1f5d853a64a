package comments_test

import (
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercatohq/mercato/internal/app/store/comments"
	"github.com/mercatohq/mercato/internal/domain/models"
	"github.com/mercatohq/mercato/internal/testutil"
)

func TestCreate_SanitizesContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := comments.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.ForumComment{
		PostID:   primitive.NewObjectID(),
		AuthorID: primitive.NewObjectID(),
		Content:  `nice post<script>alert(1)</script>`,
		Likes:    42,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if strings.Contains(created.Content, "<script>") {
		t.Errorf("content not sanitized: %q", created.Content)
	}
	if created.Likes != 0 {
		t.Errorf("likes = %d, want 0 on create", created.Likes)
	}

	if _, err := store.Create(ctx, models.ForumComment{
		PostID:   primitive.NewObjectID(),
		AuthorID: primitive.NewObjectID(),
		Content:  "   ",
	}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestListByPost_OldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := comments.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	postID := primitive.NewObjectID()
	authorID := primitive.NewObjectID()

	for _, text := range []string{"first", "second", "third"} {
		if _, err := store.Create(ctx, models.ForumComment{
			PostID: postID, AuthorID: authorID, Content: text,
		}); err != nil {
			t.Fatalf("Create %s failed: %v", text, err)
		}
	}
	// A comment on another post must not leak in.
	if _, err := store.Create(ctx, models.ForumComment{
		PostID: primitive.NewObjectID(), AuthorID: authorID, Content: "elsewhere",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, total, err := store.ListByPost(ctx, postID, 1, 20)
	if err != nil {
		t.Fatalf("ListByPost failed: %v", err)
	}
	if total != 3 || len(list) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(list))
	}
	if !strings.Contains(list[0].Content, "first") {
		t.Errorf("expected oldest comment first, got %q", list[0].Content)
	}

	count, err := store.CountByAuthor(ctx, authorID)
	if err != nil {
		t.Fatalf("CountByAuthor failed: %v", err)
	}
	if count != 4 {
		t.Errorf("author count = %d, want 4", count)
	}
}

func TestAdjustLikes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := comments.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.ForumComment{
		PostID: primitive.NewObjectID(), AuthorID: primitive.NewObjectID(), Content: "hi",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.AdjustLikes(ctx, created.ID, 1); err != nil {
		t.Fatalf("AdjustLikes failed: %v", err)
	}
	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Likes != 1 {
		t.Errorf("likes = %d, want 1", got.Likes)
	}

	if err := store.AdjustLikes(ctx, primitive.NewObjectID(), 1); err != comments.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := comments.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.ForumComment{
		PostID:   primitive.NewObjectID(),
		AuthorID: primitive.NewObjectID(),
		Content:  "first draft",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Update(ctx, created.ID, `edited<script>alert(1)</script>`); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !strings.Contains(got.Content, "edited") {
		t.Errorf("content = %q, want edited text", got.Content)
	}
	if strings.Contains(got.Content, "<script>") {
		t.Errorf("content not sanitized: %q", got.Content)
	}
	if got.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v -> %v", created.UpdatedAt, got.UpdatedAt)
	}

	if err := store.Update(ctx, created.ID, "   "); err == nil {
		t.Error("expected error for empty content")
	}
	if err := store.Update(ctx, primitive.NewObjectID(), "x"); err != comments.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteByPost(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := comments.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	postID := primitive.NewObjectID()
	authorID := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, models.ForumComment{
			PostID: postID, AuthorID: authorID, Content: "c",
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	survivor, err := store.Create(ctx, models.ForumComment{
		PostID: primitive.NewObjectID(), AuthorID: authorID, Content: "keep",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := store.DeleteByPost(ctx, postID)
	if err != nil {
		t.Fatalf("DeleteByPost failed: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}

	if _, err := store.GetByID(ctx, survivor.ID); err != nil {
		t.Errorf("comment on other post should survive: %v", err)
	}
}
