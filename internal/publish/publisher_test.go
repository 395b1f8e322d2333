package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/gesturepi/internal/gesture"
	"golang.org/x/sys/unix"
)

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "gesture.txt")
}

func TestPublisher_RoundTrip(t *testing.T) {
	tests := []struct {
		state gesture.State
		want  string
	}{
		{gesture.NoHand, "0\n"},
		{gesture.ClosedFist, "1\n"},
		{gesture.OpenHand, "2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			path := statePath(t)
			p := NewPublisher(path, 0)

			if err := p.Publish(context.Background(), tt.state); err != nil {
				t.Fatalf("Publish() error = %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("file content = %q, want %q", data, tt.want)
			}

			got, err := Read(context.Background(), path)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got != tt.state {
				t.Errorf("Read() = %v, want %v", got, tt.state)
			}
		})
	}
}

func TestPublisher_Idempotent(t *testing.T) {
	path := statePath(t)
	p := NewPublisher(path, 0)

	for i := 0; i < 2; i++ {
		if err := p.Publish(context.Background(), gesture.ClosedFist); err != nil {
			t.Fatalf("Publish() #%d error = %v", i, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "1\n" {
		t.Errorf("file content = %q, want a single record %q", data, "1\n")
	}
}

func TestPublisher_TruncatesLongerContent(t *testing.T) {
	path := statePath(t)
	if err := os.WriteFile(path, []byte("garbage from an older writer\n\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	p := NewPublisher(path, 0)
	if err := p.Publish(context.Background(), gesture.OpenHand); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "2\n" {
		t.Errorf("file content = %q, want %q", data, "2\n")
	}
}

func TestPublisher_InvalidState(t *testing.T) {
	path := statePath(t)
	p := NewPublisher(path, 0)

	err := p.Publish(context.Background(), gesture.State(9))
	if !errors.Is(err, gesture.ErrUnknownState) {
		t.Errorf("Publish() error = %v, want ErrUnknownState", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid state should not create the state file")
	}
}

func TestPublisher_OpenError(t *testing.T) {
	p := NewPublisher(filepath.Join(t.TempDir(), "missing", "gesture.txt"), 0)

	if err := p.Publish(context.Background(), gesture.NoHand); err == nil {
		t.Error("expected error when the directory does not exist")
	}
}

// holdLock takes an exclusive flock on path through a separate descriptor.
func holdLock(t *testing.T, path string) func() {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		t.Fatalf("flock: %v", err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}
}

func TestPublisher_LockTimeout(t *testing.T) {
	path := statePath(t)
	if err := os.WriteFile(path, Record(gesture.ClosedFist), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	release := holdLock(t, path)
	defer release()

	p := NewPublisher(path, 50*time.Millisecond)
	start := time.Now()
	err := p.Publish(context.Background(), gesture.OpenHand)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Publish() error = %v, want ErrLockTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Publish() waited %v, expected a bounded wait", elapsed)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "1\n" {
		t.Errorf("file content = %q, a failed publish must not modify it", data)
	}
}

func TestPublisher_CancelledWhileWaiting(t *testing.T) {
	path := statePath(t)
	release := holdLock(t, path)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	p := NewPublisher(path, 5*time.Second)
	if err := p.Publish(ctx, gesture.OpenHand); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}
}

func TestPublisher_WaitsForWriter(t *testing.T) {
	path := statePath(t)
	release := holdLock(t, path)

	go func() {
		time.Sleep(30 * time.Millisecond)
		release()
	}()

	p := NewPublisher(path, time.Second)
	if err := p.Publish(context.Background(), gesture.OpenHand); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got, err := Read(context.Background(), path)
	if err != nil || got != gesture.OpenHand {
		t.Errorf("Read() = %v, %v; want OpenHand", got, err)
	}
}

func TestPublisher_ConcurrentWriters(t *testing.T) {
	path := statePath(t)
	first := NewPublisher(path, 5*time.Second)
	second := NewPublisher(path, 5*time.Second)

	if err := first.Publish(context.Background(), gesture.NoHand); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	const rounds = 200
	var wg sync.WaitGroup
	errs := make(chan error, 3*rounds)

	writer := func(p *Publisher, state gesture.State) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if err := p.Publish(context.Background(), state); err != nil {
				errs <- err
			}
		}
	}

	wg.Add(3)
	go writer(first, gesture.ClosedFist)
	go writer(second, gesture.OpenHand)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			if _, err := Read(context.Background(), path); err != nil {
				errs <- err
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent access error: %v", err)
	}

	data, _ := os.ReadFile(path)
	if s := string(data); s != "1\n" && s != "2\n" {
		t.Errorf("final content = %q, want one complete record", s)
	}
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    gesture.State
		wantErr bool
	}{
		{name: "no hand", data: "0\n", want: gesture.NoHand},
		{name: "open hand", data: "2\n", want: gesture.OpenHand},
		{name: "trailing whitespace", data: "1 \r\n\n", want: gesture.ClosedFist},
		{name: "no newline", data: "2", want: gesture.OpenHand},
		{name: "empty", data: "", wantErr: true},
		{name: "unknown digit", data: "7\n", wantErr: true},
		{name: "two records", data: "12\n", wantErr: true},
		{name: "text", data: "Open Hand\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord([]byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRecord) {
					t.Errorf("ParseRecord(%q) error = %v, want ErrInvalidRecord", tt.data, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecord(%q) error = %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("ParseRecord(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	if _, err := Read(context.Background(), statePath(t)); err == nil {
		t.Error("expected error for missing state file")
	}
}
