package oto

import (
	"errors"
	"testing"

	"github.com/ardnew/softpluck/audio"
	"github.com/ardnew/softpluck/pkg"
)

// streaming returns an output that is already playing buf, without a sound
// card behind it.
func streaming(channels int, buf []int16) *Output {
	o := New(channels, 0)
	o.buf = buf
	o.next = buf
	o.armed = true
	o.playing = true
	return o
}

type recorder struct {
	o      *Output
	events []string
}

func (r *recorder) HalfTransferComplete() { r.events = append(r.events, "half") }

func (r *recorder) TransferComplete() {
	r.events = append(r.events, "full")
	_ = r.o.ChangeBuffer(r.o.next)
}

func TestNew(t *testing.T) {
	o := New(0, 0)
	if o.channels != 1 || o.latency != DefaultLatency {
		t.Errorf("New(0, 0) = channels %d latency %v", o.channels, o.latency)
	}
}

func TestOutput_NotInitialized(t *testing.T) {
	o := New(2, 0)
	if err := o.Play(make([]int16, 8)); !errors.Is(err, pkg.ErrInvalidState) {
		t.Errorf("Play() before Init error = %v", err)
	}
	if err := o.ChangeBuffer(make([]int16, 8)); !errors.Is(err, pkg.ErrNotRunning) {
		t.Errorf("ChangeBuffer() before Play error = %v", err)
	}
	if err := o.Init(audio.OutputAuto, 101, 44100); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Init(volume 101) error = %v", err)
	}
	if err := o.Stop(); err != nil {
		t.Errorf("Stop() without player error = %v", err)
	}
}

func TestOutput_ReadEncodes(t *testing.T) {
	buf := []int16{1, -1, 0x1234, -32768, 5, 6, 7, 8}
	o := streaming(2, buf)

	p := make([]byte, 8)
	n, err := o.Read(p)
	if err != nil || n != len(p) {
		t.Fatalf("Read() = %d, %v", n, err)
	}

	want := []byte{0x01, 0x00, 0xFF, 0xFF, 0x34, 0x12, 0x00, 0x80}
	for i := range want {
		if p[i] != want[i] {
			t.Fatalf("Read() = % X, want % X", p, want)
		}
	}
}

func TestOutput_ReadNotifies(t *testing.T) {
	o := streaming(2, make([]int16, 8))
	r := &recorder{o: o}
	o.SetHandler(r)

	p := make([]byte, 6)
	_, _ = o.Read(p) // one frame, then a partial frame of silence
	if len(r.events) != 0 {
		t.Fatalf("events after one frame = %v", r.events)
	}

	_, _ = o.Read(make([]byte, 4))
	if len(r.events) != 1 || r.events[0] != "half" {
		t.Fatalf("events = %v, want [half]", r.events)
	}

	_, _ = o.Read(make([]byte, 8))
	if len(r.events) != 2 || r.events[1] != "full" {
		t.Fatalf("events = %v, want [half full]", r.events)
	}

	_, _ = o.Read(make([]byte, 16))
	if len(r.events) != 4 {
		t.Errorf("events after another pass = %v", r.events)
	}
	if o.Underruns() != 0 {
		t.Errorf("Underruns() = %d, want 0", o.Underruns())
	}
}

func TestOutput_ReadUnderrun(t *testing.T) {
	o := streaming(1, make([]int16, 4))
	_, _ = o.Read(make([]byte, 16))
	if o.Underruns() != 2 {
		t.Errorf("Underruns() = %d, want 2", o.Underruns())
	}
}

func TestOutput_ReadSilentWhenStopped(t *testing.T) {
	o := streaming(1, []int16{100, 100})
	_ = o.Stop()

	p := []byte{9, 9, 9, 9}
	n, err := o.Read(p)
	if err != nil || n != 4 {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	for _, b := range p {
		if b != 0 {
			t.Fatalf("Read() after Stop = % X, want silence", p)
		}
	}
}

func BenchmarkOutput_Read(b *testing.B) {
	o := streaming(2, make([]int16, 8192))
	o.SetHandler(audio.NewCoordinator(o, o.buf))
	p := make([]byte, 4096)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = o.Read(p)
	}
}
