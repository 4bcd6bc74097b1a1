package playlist

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/rng"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mediaFiles(t *testing.T, dir string, n int) []string {
	t.Helper()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, "track"+string(rune('a'+i))+".mp3")
		writeFile(t, paths[i], "stub")
	}
	return paths
}

func TestM3UParsingAndRotation(t *testing.T) {
	dir := t.TempDir()
	paths := mediaFiles(t, dir, 3)

	plsPath := filepath.Join(dir, "main.m3u")
	writeFile(t, plsPath, "# a comment\n"+paths[0]+"\n\n"+paths[1]+"\n"+paths[2]+"\n")

	p := New(plsPath, false, nil, rng.NewSeeded(1), zerolog.Nop())

	// Two full rotations in file order.
	for round := 0; round < 2; round++ {
		for i := 0; i < 3; i++ {
			got, err := p.NextItem()
			if err != nil {
				t.Fatalf("round %d item %d: %v", round, i, err)
			}
			if got != paths[i] {
				t.Fatalf("round %d item %d: got %s want %s", round, i, got, paths[i])
			}
		}
	}
}

func TestPLSParsing(t *testing.T) {
	dir := t.TempDir()
	paths := mediaFiles(t, dir, 2)

	plsPath := filepath.Join(dir, "main.pls")
	writeFile(t, plsPath, "\n[playlist]\nNumberOfEntries=2\nFile1="+paths[0]+" \nFile2="+paths[1]+"\n")

	p := New(plsPath, false, nil, rng.NewSeeded(1), zerolog.Nop())
	got, err := p.NextItem()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != paths[0] {
		t.Fatalf("got %s want %s", got, paths[0])
	}
}

func TestPLSRejectsMissingHeader(t *testing.T) {
	dir := t.TempDir()
	paths := mediaFiles(t, dir, 1)

	plsPath := filepath.Join(dir, "broken.pls")
	writeFile(t, plsPath, "File1="+paths[0]+"\n")

	p := New(plsPath, false, nil, rng.NewSeeded(1), zerolog.Nop())
	if _, err := p.NextItem(); err == nil {
		t.Fatal("expected parse failure without [playlist] header")
	}
}

func TestPLSRejectsEntryWithoutEquals(t *testing.T) {
	dir := t.TempDir()
	paths := mediaFiles(t, dir, 1)

	plsPath := filepath.Join(dir, "broken.pls")
	writeFile(t, plsPath, "[playlist]\nFile1 "+paths[0]+"\n")

	p := New(plsPath, false, nil, rng.NewSeeded(1), zerolog.Nop())
	if _, err := p.NextItem(); err == nil {
		t.Fatal("expected parse failure for File line without '='")
	}
}

func TestUnreadableEntriesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	paths := mediaFiles(t, dir, 3)

	plsPath := filepath.Join(dir, "main.m3u")
	writeFile(t, plsPath, paths[0]+"\n"+paths[1]+"\n"+paths[2]+"\n")

	p := New(plsPath, false, nil, rng.NewSeeded(1), zerolog.Nop())
	if _, err := p.NextItem(); err != nil {
		t.Fatalf("next: %v", err)
	}

	// Delete the upcoming entry; the scan must skip past it.
	if err := os.Remove(paths[1]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, err := p.NextItem()
	if err != nil {
		t.Fatalf("next after removal: %v", err)
	}
	if got != paths[2] {
		t.Fatalf("got %s want %s", got, paths[2])
	}
}

func TestEmptyPlaylistFails(t *testing.T) {
	dir := t.TempDir()
	plsPath := filepath.Join(dir, "empty.m3u")
	writeFile(t, plsPath, "# nothing here\n")

	p := New(plsPath, false, nil, rng.NewSeeded(1), zerolog.Nop())
	if _, err := p.NextItem(); err == nil {
		t.Fatal("expected empty playlist to fail")
	}
}

func TestShufflePreservesMultiset(t *testing.T) {
	dir := t.TempDir()
	paths := mediaFiles(t, dir, 8)

	var body string
	for _, p := range paths {
		body += p + "\n"
	}
	plsPath := filepath.Join(dir, "main.m3u")
	writeFile(t, plsPath, body)

	p := New(plsPath, true, nil, rng.NewSeeded(99), zerolog.Nop())
	if err := p.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	got := p.Items()
	sort.Strings(got)
	want := append([]string(nil), paths...)
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("shuffle lost items: %v", p.Items())
		}
	}
}

func TestReloadOnMtimeChange(t *testing.T) {
	dir := t.TempDir()
	paths := mediaFiles(t, dir, 2)

	plsPath := filepath.Join(dir, "main.m3u")
	writeFile(t, plsPath, paths[0]+"\n")

	p := New(plsPath, false, nil, rng.NewSeeded(1), zerolog.Nop())
	if got, _ := p.NextItem(); got != paths[0] {
		t.Fatalf("got %s want %s", got, paths[0])
	}

	// Rewrite with a new mtime; next call must see the new content.
	writeFile(t, plsPath, paths[1]+"\n")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(plsPath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := p.NextItem()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != paths[1] {
		t.Fatalf("got %s want %s", got, paths[1])
	}
}

func TestIntermediateReady(t *testing.T) {
	dir := t.TempDir()
	paths := mediaFiles(t, dir, 1)

	plsPath := filepath.Join(dir, "ids.m3u")
	writeFile(t, plsPath, paths[0]+"\n")

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ipls := NewIntermediate("station-ids", plsPath, false, nil, 5, 2, start, rng.NewSeeded(1), zerolog.Nop())

	if ipls.Ready(start.Add(4 * time.Minute)) {
		t.Fatal("ready before interval elapsed")
	}
	if !ipls.Ready(start.Add(5*time.Minute + time.Second)) {
		t.Fatal("not ready after interval elapsed")
	}
	if ipls.Pending != BurstIdle {
		t.Fatalf("new intermediate should be idle, got %d", ipls.Pending)
	}
}
