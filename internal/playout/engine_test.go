package playout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_player/internal/clock"
	"github.com/friendsincode/skald_player/internal/events"
	"github.com/friendsincode/skald_player/internal/media"
)

// writeDCWAV writes a 48 kHz stereo WAV holding a constant sample value,
// so the track is identifiable in the output stream.
func writeDCWAV(t *testing.T, path string, value int16, frames int) {
	t.Helper()

	dataLen := frames * 4
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate*4))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for i := 0; i < frames; i++ {
		binary.Write(&buf, binary.LittleEndian, value)
		binary.Write(&buf, binary.LittleEndian, value)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

// seqProvider cycles through a fixed track list.
type seqProvider struct {
	mu     sync.Mutex
	tracks []*media.AudioFile
	idx    int
	fail   bool
}

func (p *seqProvider) NextFor(time.Time) (*media.AudioFile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("nothing available")
	}
	info := *p.tracks[p.idx%len(p.tracks)]
	p.idx++
	return &info, nil
}

func stubSpeaker(e *Engine) {
	e.speakerInit = func(beep.SampleRate, int) error { return nil }
	e.speakerPlay = func(beep.Streamer) {}
}

func newTestEngine(t *testing.T, trackSecs int, fades []*media.FadeInfo) (*Engine, *seqProvider) {
	t.Helper()
	dir := t.TempDir()

	values := []int16{8192, 4096, 2048}
	provider := &seqProvider{}
	for i, v := range values {
		path := filepath.Join(dir, "track"+string(rune('0'+i))+".wav")
		writeDCWAV(t, path, v, trackSecs*SampleRate)
		info := &media.AudioFile{
			Path:     path,
			Title:    "track" + string(rune('0'+i)),
			Duration: float64(trackSecs),
			ZoneName: "test",
		}
		if fades != nil {
			info.Fade = fades[i]
		}
		provider.tracks = append(provider.tracks, info)
	}

	e := NewEngine(provider, 1, clock.System{}, events.NewBus(), zerolog.Nop())
	stubSpeaker(e)
	return e, provider
}

// drain pulls the given number of frames from the output, waiting for
// the decoder to keep up so no underrun silence leaks into the result.
func drain(t *testing.T, e *Engine, frames int) [][2]float64 {
	t.Helper()

	out := make([][2]float64, 0, frames)
	buf := make([][2]float64, 512)
	deadline := time.Now().Add(30 * time.Second)

	for len(out) < frames {
		if time.Now().After(deadline) {
			t.Fatalf("timed out draining output after %d frames", len(out))
		}
		if e.ring.ReadSpace() < len(buf)*bytesPerFrame {
			time.Sleep(time.Millisecond)
			continue
		}
		n, ok := e.out.Stream(buf)
		if !ok {
			t.Fatal("output stream ended early")
		}
		out = append(out, buf[:n]...)
	}
	return out[:frames]
}

const (
	v0 = 8192.0 / 32768.0
	v1 = 4096.0 / 32768.0
	v2 = 2048.0 / 32768.0
)

func TestEngineStraightPlayback(t *testing.T) {
	e, _ := newTestEngine(t, 3, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	const trackFrames = 3 * SampleRate
	out := drain(t, e, 3*trackFrames)

	// The resume fade covers the first 2 s; sample the steady regions.
	probe := func(idx int, want float64) {
		t.Helper()
		if got := out[idx][0]; math.Abs(got-want) > 0.001 {
			t.Fatalf("frame %d: got %f want %f", idx, got, want)
		}
	}
	probe(trackFrames-100, v0)
	probe(trackFrames+100, v1)
	probe(2*trackFrames+100, v2)

	// Sample-accurate boundary: the period straddles the switch.
	probe(trackFrames-1, v0)
	probe(trackFrames, v1)
}

func TestEngineTrackFadeBoundary(t *testing.T) {
	fade := &media.FadeInfo{FadeInSecs: 1, FadeOutSecs: 1, MinLevel: 0, MaxLevel: 1}
	e, _ := newTestEngine(t, 3, []*media.FadeInfo{fade, fade, fade})
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	const trackFrames = 3 * SampleRate
	out := drain(t, e, 2*trackFrames)

	// Track A's last frames ramp to zero, track B's first frames ramp
	// up from zero (the state fade is over by then).
	if got := out[trackFrames-1][0]; got > 0.001 {
		t.Fatalf("end of faded track: %f, want ~0", got)
	}
	if got := out[trackFrames][0]; got > 0.001 {
		t.Fatalf("start of faded track: %f, want ~0", got)
	}
	mid := out[trackFrames+SampleRate/2][0] // 0.5 s into B: half ramp
	if math.Abs(mid-v1/2) > 0.005 {
		t.Fatalf("mid-ramp: got %f want %f", mid, v1/2)
	}
	steady := out[trackFrames+SampleRate+100][0]
	if math.Abs(steady-v1) > 0.001 {
		t.Fatalf("steady after fade-in: got %f want %f", steady, v1)
	}
}

func TestEngineStopJoinsWorkers(t *testing.T) {
	e, _ := newTestEngine(t, 3, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	drain(t, e, SampleRate) // let it run a bit

	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("stop did not complete")
	}

	if e.State() != StateStopped {
		t.Fatalf("state %s, want stopped", e.State())
	}
	select {
	case <-e.Done():
	default:
		t.Fatal("Done not closed after stop")
	}
}

func TestEngineFatalWhenNothingAvailable(t *testing.T) {
	e, provider := newTestEngine(t, 3, nil)
	provider.fail = true

	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-e.Stopping():
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not begin stopping on scheduler failure")
	}
	e.Stop()

	if e.Err() == nil {
		t.Fatal("expected a fatal error")
	}
	if e.State() != StateError {
		t.Fatalf("state %s, want error", e.State())
	}
}

func TestEngineStartRejectsWhenNotStopped(t *testing.T) {
	e, _ := newTestEngine(t, 3, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer e.Stop()

	if err := e.Start(); err == nil {
		t.Fatal("second start must fail")
	}
}
