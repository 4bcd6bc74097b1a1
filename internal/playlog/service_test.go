package playlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/events"
	"github.com/friendsincode/skald_player/internal/media"
)

func openTestDB(t *testing.T) *Service {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "playlog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return NewService(db, events.NewBus(), zerolog.Nop())
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	s.record(ctx, &media.AudioFile{Path: "/a.mp3", Title: "A", ZoneName: "z", Duration: 60})
	s.record(ctx, &media.AudioFile{Path: "/b.mp3", Title: "B", ZoneName: "z", Duration: 60})

	rows, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: %d", len(rows))
	}
}

func TestConsecutiveDuplicatesCollapsed(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	info := &media.AudioFile{Path: "/a.mp3", Title: "A", Duration: 300}
	s.record(ctx, info)
	s.record(ctx, info) // re-published snapshot, same play

	rows, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: %d, want 1", len(rows))
	}
}

func TestEventDrivenRecording(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "playlog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	bus := events.NewBus()
	s := NewService(db, bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	bus.Publish(events.EventNowPlaying, events.Payload{
		"current": &media.AudioFile{Path: "/c.mp3", Title: "C", Duration: 10},
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rows, err := s.Recent(ctx, 1)
		if err == nil && len(rows) == 1 && rows[0].Path == "/c.mp3" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("event never recorded")
}
