// Package publish exchanges the current gesture state with other processes
// through a single-record file guarded by an advisory flock.
//
// The record is one ASCII digit followed by a newline. Writers hold an
// exclusive lock for the whole truncate+write+sync sequence; readers that take
// a shared lock therefore always observe a complete record.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ayusman/gesturepi/internal/gesture"
	"golang.org/x/sys/unix"
)

// DefaultPath is the well-known state file location.
const DefaultPath = "/tmp/gesture.txt"

// DefaultLockTimeout bounds how long Publish waits for another writer.
const DefaultLockTimeout = 2 * time.Second

// lockRetryInterval is the polling period while the lock is contended.
const lockRetryInterval = 5 * time.Millisecond

var (
	// ErrLockTimeout is returned when the lock could not be acquired in time.
	ErrLockTimeout = errors.New("timed out waiting for state file lock")
	// ErrInvalidRecord is returned when the state file does not hold a valid record.
	ErrInvalidRecord = errors.New("invalid state record")
)

// StatePublisher is implemented by anything able to publish a gesture state.
type StatePublisher interface {
	Publish(ctx context.Context, state gesture.State) error
}

// Publisher writes gesture states to the state file.
type Publisher struct {
	path        string
	lockTimeout time.Duration
}

// NewPublisher creates a Publisher for path. A non-positive lockTimeout
// selects DefaultLockTimeout.
func NewPublisher(path string, lockTimeout time.Duration) *Publisher {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Publisher{path: path, lockTimeout: lockTimeout}
}

// Path returns the state file path.
func (p *Publisher) Path() string {
	return p.path
}

// Record returns the persisted bytes for a state.
func Record(state gesture.State) []byte {
	return []byte{state.Code(), '\n'}
}

// Publish replaces the state file content with the record for state.
//
// ctx only bounds the wait for the lock. Once the lock is held the write runs
// to completion, so cancellation never leaves a partial record behind.
func (p *Publisher) Publish(ctx context.Context, state gesture.State) (err error) {
	if !state.Valid() {
		return fmt.Errorf("publish: %w: %d", gesture.ErrUnknownState, int(state))
	}

	f, err := os.OpenFile(p.path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("publish: open state file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("publish: close state file: %w", cerr)
		}
	}()

	return withLock(ctx, f, unix.LOCK_EX, p.lockTimeout, func() error {
		if err := f.Truncate(0); err != nil {
			return fmt.Errorf("publish: truncate: %w", err)
		}
		if _, err := f.WriteAt(Record(state), 0); err != nil {
			return fmt.Errorf("publish: write: %w", err)
		}
		if err := f.Sync(); err != nil {
			return fmt.Errorf("publish: sync: %w", err)
		}
		return nil
	})
}

// Read returns the state currently stored at path. It takes a shared lock so
// it never interleaves with a writer. Trailing whitespace is ignored.
func Read(ctx context.Context, path string) (gesture.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return gesture.NoHand, fmt.Errorf("read state file: %w", err)
	}
	defer f.Close()

	var data []byte
	err = withLock(ctx, f, unix.LOCK_SH, DefaultLockTimeout, func() error {
		var rerr error
		data, rerr = io.ReadAll(io.LimitReader(f, 64))
		return rerr
	})
	if err != nil {
		return gesture.NoHand, fmt.Errorf("read state file: %w", err)
	}

	return ParseRecord(data)
}

// ParseRecord interprets the leading digit of a state record.
func ParseRecord(data []byte) (gesture.State, error) {
	data = bytes.TrimRight(data, " \t\r\n")
	if len(data) != 1 {
		return gesture.NoHand, fmt.Errorf("%w: %q", ErrInvalidRecord, data)
	}
	state, err := gesture.ParseCode(data[0])
	if err != nil {
		return gesture.NoHand, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return state, nil
}

// withLock runs fn while holding a flock of the given mode on f. The lock is
// released on every return path.
func withLock(ctx context.Context, f *os.File, mode int, timeout time.Duration, fn func() error) error {
	if err := acquire(ctx, f, mode, timeout); err != nil {
		return err
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return fn()
}

// acquire polls a non-blocking flock until it succeeds, ctx is done or the
// timeout elapses.
func acquire(ctx context.Context, f *os.File, mode int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	fd := int(f.Fd())

	for {
		err := unix.Flock(fd, mode|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			return fmt.Errorf("flock: %w", err)
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}
