package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/storyarc/pkg/story"
	"github.com/jwebster45206/storyarc/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStorageWithClient(client, 0, testLogger()), mr
}

func newTestStory(name, userID string, updated time.Time) *story.Story {
	p := story.CreationParams{CharacterName: name, UserID: userID}
	p.Normalize()
	s := story.New(p)
	s.SetRoot(story.NewNode("The bell tolls.", []string{"Go left", "Go right", "Wait"}, "", story.SourceGenerated))
	s.Memory.Arcs = []string{"Win the tournament."}
	s.Memory.Characters = []story.Character{{Name: "Rhea", Relationship: "Rival", Sect: story.StrPtr("Iron Fist")}}
	s.LastUpdated = updated
	return s
}

// backends returns every storage implementation that can run without
// external services.
func backends(t *testing.T) map[string]storage.Storage {
	t.Helper()

	r, mr := setupTestRedis(t)
	t.Cleanup(func() {
		r.Close()
		mr.Close()
	})

	sq, err := OpenSQLite(":memory:", testLogger())
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]storage.Storage{
		"mock":   storage.NewMockStorage(),
		"redis":  r,
		"sqlite": sq,
	}
}

func TestStorage_SaveAndLoad(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newTestStory("Li Wei", "user-1", time.Now())

			if err := s.SaveStory(ctx, st); err != nil {
				t.Fatalf("Failed to save story: %v", err)
			}
			loaded, err := s.LoadStory(ctx, st.ID)
			if err != nil {
				t.Fatalf("Failed to load story: %v", err)
			}
			if loaded.ID != st.ID || loaded.CharacterName != "Li Wei" {
				t.Errorf("Loaded wrong story: %+v", loaded)
			}
			if len(loaded.Nodes) != 1 || loaded.CurrentNodeID != st.CurrentNodeID {
				t.Errorf("Expected the root node to round-trip, got %d nodes", len(loaded.Nodes))
			}
			if len(loaded.Memory.Characters) != 1 || *loaded.Memory.Characters[0].Sect != "Iron Fist" {
				t.Errorf("Expected memory to round-trip, got %+v", loaded.Memory.Characters)
			}

			// Saving again replaces the record.
			loaded.Title = "Renamed"
			if err := s.SaveStory(ctx, loaded); err != nil {
				t.Fatalf("Failed to update story: %v", err)
			}
			again, _ := s.LoadStory(ctx, st.ID)
			if again.Title != "Renamed" {
				t.Errorf("Expected updated title, got %q", again.Title)
			}
		})
	}
}

func TestStorage_NotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.LoadStory(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Expected ErrNotFound on load, got %v", err)
			}
			if err := s.DeleteStory(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Expected ErrNotFound on delete, got %v", err)
			}
			if _, err := s.LoadStoryByShareToken(ctx, ""); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Expected ErrNotFound for empty token, got %v", err)
			}
		})
	}
}

func TestStorage_ListAndDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)
			older := newTestStory("Older", "user-1", base)
			newer := newTestStory("Newer", "user-1", base.Add(time.Minute))
			other := newTestStory("Other", "user-2", base)
			for _, st := range []*story.Story{older, newer, other} {
				if err := s.SaveStory(ctx, st); err != nil {
					t.Fatalf("Failed to save story: %v", err)
				}
			}

			list, err := s.ListStories(ctx, "user-1")
			if err != nil {
				t.Fatalf("Failed to list stories: %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("Expected 2 stories, got %d", len(list))
			}
			if list[0].ID != newer.ID || list[1].ID != older.ID {
				t.Errorf("Expected newest first, got %s then %s", list[0].CharacterName, list[1].CharacterName)
			}
			if list[0].Title != newer.Title {
				t.Errorf("Expected title %q, got %q", newer.Title, list[0].Title)
			}

			if err := s.DeleteStory(ctx, older.ID); err != nil {
				t.Fatalf("Failed to delete story: %v", err)
			}
			list, _ = s.ListStories(ctx, "user-1")
			if len(list) != 1 || list[0].ID != newer.ID {
				t.Errorf("Expected only the newer story after delete, got %+v", list)
			}

			empty, err := s.ListStories(ctx, "nobody")
			if err != nil || empty == nil || len(empty) != 0 {
				t.Errorf("Expected empty non-nil list, got %v (%v)", empty, err)
			}
		})
	}
}

func TestStorage_ShareToken(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := newTestStory("Li Wei", "user-1", time.Now())
			st.ShareToken = "tok-" + name
			if err := s.SaveStory(ctx, st); err != nil {
				t.Fatalf("Failed to save story: %v", err)
			}
			if _, err := s.LoadStoryByShareToken(ctx, st.ShareToken); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Expected unshareable story to be hidden, got %v", err)
			}

			st.IsShareable = true
			if err := s.SaveStory(ctx, st); err != nil {
				t.Fatalf("Failed to save story: %v", err)
			}
			shared, err := s.LoadStoryByShareToken(ctx, st.ShareToken)
			if err != nil {
				t.Fatalf("Failed to load shared story: %v", err)
			}
			if shared.ID != st.ID {
				t.Errorf("Expected story %s, got %s", st.ID, shared.ID)
			}
		})
	}
}

func TestRedisStorage_PrunesExpiredFromIndex(t *testing.T) {
	r, mr := setupTestRedis(t)
	defer mr.Close()
	defer r.Close()
	ctx := context.Background()

	st := newTestStory("Li Wei", "user-1", time.Now())
	if err := r.SaveStory(ctx, st); err != nil {
		t.Fatalf("Failed to save story: %v", err)
	}
	mr.Del(storyKeyPrefix + st.ID)

	list, err := r.ListStories(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to list stories: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected expired story to be skipped, got %d", len(list))
	}
	members, _ := mr.ZMembers(userIndexKey("user-1"))
	if len(members) != 0 {
		t.Errorf("Expected index to be pruned, got %v", members)
	}
}

func TestRedisStorage_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisStorageWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour, testLogger())
	ctx := context.Background()

	st := newTestStory("Li Wei", "", time.Now())
	if err := r.SaveStory(ctx, st); err != nil {
		t.Fatalf("Failed to save story: %v", err)
	}
	if ttl := mr.TTL(storyKeyPrefix + st.ID); ttl != time.Hour {
		t.Errorf("Expected TTL of 1h, got %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := r.LoadStory(ctx, st.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected story to expire, got %v", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), Options{Backend: "cassandra"}, testLogger()); err == nil {
		t.Error("Expected error for unknown backend")
	}
	s, err := Open(context.Background(), Options{Backend: BackendMemory}, testLogger())
	if err != nil || s == nil {
		t.Errorf("Expected memory backend, got %v", err)
	}
}
