package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func Test_RankByRecentMTime_OldestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	old := filepath.Join(dir, "old")
	mid := filepath.Join(dir, "mid")
	recent := filepath.Join(dir, "recent")

	writeFile(t, old, "a")
	writeFile(t, mid, "b")
	writeFile(t, recent, "c")

	base := time.Now().Add(-time.Hour)
	for i, p := range []string{old, mid, recent} {
		stamp := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(p, stamp, stamp); err != nil {
			t.Fatalf("Chtimes(%s): %v", p, err)
		}
	}

	got := RankByRecentMTime([]string{recent, old, mid})
	want := []string{old, mid, recent}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("RankByRecentMTime() mismatch (-want +got):\n%s", diff)
	}
}

func Test_RankByRecentMTime_UnstatablePathSortsFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	present := filepath.Join(dir, "present")
	writeFile(t, present, "x")

	missing := filepath.Join(dir, "missing")

	got := RankByRecentMTime([]string{present, missing})
	want := []string{missing, present}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("RankByRecentMTime() mismatch (-want +got):\n%s", diff)
	}
}

func Test_RankByRecentMTime_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	writeFile(t, a, "a")
	writeFile(t, b, "b")

	in := []string{b, a}
	_ = RankByRecentMTime(in)

	if diff := cmp.Diff([]string{b, a}, in); diff != "" {
		t.Fatalf("input slice was mutated (-want +got):\n%s", diff)
	}
}
