package logbuffer

import (
	"testing"
	"time"
)

func TestRingWrapKeepsNewest(t *testing.T) {
	b := New(4)
	for i := 0; i < 6; i++ {
		b.Add(LogEntry{Message: string(rune('a' + i))})
	}

	all := b.GetAll()
	if len(all) != 4 {
		t.Fatalf("count: %d", len(all))
	}
	if all[0].Message != "c" || all[3].Message != "f" {
		t.Fatalf("unexpected window: %v", all)
	}
}

func TestQueryFilters(t *testing.T) {
	b := New(16)
	b.Add(LogEntry{Level: "warn", Component: "sched", Message: "fallback used", Timestamp: time.Now()})
	b.Add(LogEntry{Level: "info", Component: "player", Message: "track switch", Timestamp: time.Now()})
	b.Add(LogEntry{Level: "warn", Component: "player", Message: "ring underrun", Timestamp: time.Now()})

	warns := b.Query(QueryParams{Level: "warn"})
	if len(warns) != 2 {
		t.Fatalf("warns: %d", len(warns))
	}

	player := b.Query(QueryParams{Component: "player"})
	if len(player) != 2 {
		t.Fatalf("player: %d", len(player))
	}

	found := b.Query(QueryParams{Search: "UNDERRUN"})
	if len(found) != 1 || found[0].Message != "ring underrun" {
		t.Fatalf("search: %v", found)
	}

	limited := b.Query(QueryParams{Limit: 1})
	if len(limited) != 1 || limited[0].Message != "ring underrun" {
		t.Fatalf("limit should keep newest: %v", limited)
	}
}

func TestWriterParsesZerologLines(t *testing.T) {
	b := New(8)
	w := NewWriter(b)

	line := []byte(`{"level":"warn","component":"sched","time":1700000000,"message":"re-loading config failed"}`)
	if _, err := w.Write(line); err != nil {
		t.Fatalf("write: %v", err)
	}

	all := b.GetAll()
	if len(all) != 1 {
		t.Fatalf("count: %d", len(all))
	}
	e := all[0]
	if e.Level != "warn" || e.Component != "sched" || e.Message != "re-loading config failed" {
		t.Fatalf("entry: %+v", e)
	}
}

func TestWriterKeepsUnparseableRaw(t *testing.T) {
	b := New(8)
	w := NewWriter(b)
	if _, err := w.Write([]byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if all := b.GetAll(); len(all) != 1 || all[0].Raw == "" {
		t.Fatalf("raw entry missing: %v", all)
	}
}
