package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbindex/indexer/internal/model"
)

func TestStore_PutGetRoundtrip(t *testing.T) {
	store := New(t.TempDir())
	key := model.CacheKey{RelativePath: "pkg/file.go", Stage: model.StageFileAnalysis}

	if err := store.Put(key, []byte("analysis output")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	content, _, ok, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get reported a miss after Put")
	}
	if string(content) != "analysis output" {
		t.Errorf("content = %q, want %q", content, "analysis output")
	}
}

func TestStore_GetMissReturnsOkFalse(t *testing.T) {
	store := New(t.TempDir())
	key := model.CacheKey{RelativePath: "nope.go", Stage: model.StageFileAnalysis}

	_, _, ok, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get reported a hit for a key that was never Put")
	}
}

func TestStore_PutLeavesNoTempFilesBehind(t *testing.T) {
	root := t.TempDir()
	store := New(root)
	key := model.CacheKey{RelativePath: "a.go", Stage: model.StageFileAnalysis}

	if err := store.Put(key, []byte("x")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache dir has %d entries after one Put, want exactly the final file: %v", len(entries), entries)
	}
	if entries[0].Name() != key.String() {
		t.Errorf("leftover entry %q, want %q", entries[0].Name(), key.String())
	}
}

func TestStore_IsFresh(t *testing.T) {
	store := New(t.TempDir())
	key := model.CacheKey{RelativePath: "a.go", Stage: model.StageFileAnalysis}

	if fresh, err := store.IsFresh(key, nil, 2); err != nil || fresh {
		t.Errorf("IsFresh on a missing entry = (%v, %v), want (false, nil)", fresh, err)
	}

	if err := store.Put(key, []byte("x")); err != nil {
		t.Fatal(err)
	}

	older := time.Now().Add(-time.Hour)
	fresh, err := store.IsFresh(key, []time.Time{older}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !fresh {
		t.Error("IsFresh = false against an older dependency, want true")
	}

	newer := time.Now().Add(time.Hour)
	fresh, err = store.IsFresh(key, []time.Time{newer}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if fresh {
		t.Error("IsFresh = true against a newer dependency, want false")
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	store := New(t.TempDir())
	key := model.CacheKey{RelativePath: "a.go", Stage: model.StageFileAnalysis}

	if err := store.Delete(key); err != nil {
		t.Errorf("Delete of a nonexistent entry returned %v, want nil", err)
	}

	if err := store.Put(key, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if !store.Exists(key) {
		t.Fatal("Exists = false right after Put")
	}
	if err := store.Delete(key); err != nil {
		t.Fatal(err)
	}
	if store.Exists(key) {
		t.Error("Exists = true after Delete")
	}
}

func TestStore_PathNestsUnderSubdirectories(t *testing.T) {
	root := t.TempDir()
	store := New(root)
	key := model.CacheKey{RelativePath: "a/b/c.go", Stage: model.StageDirectoryAnalysis}

	if err := store.Put(key, []byte("x")); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, "a", "b", "c.go.directory-analysis.md")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected cache file at %s: %v", want, err)
	}
}

func TestFlight_DedupesConcurrentBuilds(t *testing.T) {
	f := NewFlight()
	key := model.CacheKey{RelativePath: "a.go", Stage: model.StageFileAnalysis}

	start := make(chan struct{})
	var calls int
	callDone := make(chan struct{})

	produce := func() ([]byte, error) {
		calls++
		<-start // hold every concurrent caller inside produce until released
		return []byte("built"), nil
	}

	const n = 5
	results := make(chan []byte, n)
	for i := 0; i < n; i++ {
		go func() {
			content, err := f.Do(key, produce)
			if err != nil {
				t.Error(err)
			}
			results <- content
		}()
	}

	// Give goroutines a chance to pile up behind the single in-flight
	// build before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(start)
	close(callDone)

	for i := 0; i < n; i++ {
		content := <-results
		if string(content) != "built" {
			t.Errorf("result %d = %q, want %q", i, content, "built")
		}
	}
	if calls != 1 {
		t.Errorf("produce called %d times, want exactly 1", calls)
	}
}

func TestFlight_SequentialCallsEachRun(t *testing.T) {
	f := NewFlight()
	key := model.CacheKey{RelativePath: "a.go", Stage: model.StageFileAnalysis}

	calls := 0
	produce := func() ([]byte, error) {
		calls++
		return []byte("built"), nil
	}

	if _, err := f.Do(key, produce); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Do(key, produce); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("produce called %d times across two sequential Do calls, want 2", calls)
	}
}
