// Command gesturectl reads or injects the published gesture state by hand.
//
// Without flags it reads single characters from stdin: 0, 1 and 2 publish
// no hand, closed fist and open hand; q quits. With -read it prints the
// current state and exits.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayusman/gesturepi/internal/gesture"
	"github.com/ayusman/gesturepi/internal/logging"
	"github.com/ayusman/gesturepi/internal/publish"
)

func main() {
	stateFile := flag.String("state-file", publish.DefaultPath, "published state file")
	lockTimeout := flag.Duration("lock-timeout", publish.DefaultLockTimeout, "how long to wait for the file lock")
	read := flag.Bool("read", false, "print the published state and exit")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gesturectl: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *read {
		readCtx, cancel := context.WithTimeout(ctx, *lockTimeout)
		defer cancel()

		state, err := publish.Read(readCtx, *stateFile)
		if err != nil {
			logger.Error("read state", "path", *stateFile, "error", err)
			os.Exit(1)
		}
		fmt.Printf("%c %s\n", state.Code(), state)
		return
	}

	pub := publish.NewPublisher(*stateFile, *lockTimeout)
	logger.Info("publishing from stdin", "path", *stateFile, "keys", "0 1 2, q to quit")
	if err := control(ctx, os.Stdin, pub, logger); err != nil {
		logger.Error("gesturectl stopped", "error", err)
		os.Exit(1)
	}
}

// control publishes a state for every 0, 1 or 2 read from in until q, EOF
// or cancellation. Whitespace is ignored and other characters are logged.
// A failed publish is logged and does not stop the loop.
func control(ctx context.Context, in io.Reader, pub publish.StatePublisher, logger *slog.Logger) error {
	r := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		c, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		switch c {
		case 'q', 'Q':
			return nil
		case ' ', '\t', '\r', '\n':
			continue
		}

		state, err := gesture.ParseCode(c)
		if err != nil {
			logger.Warn("ignoring key", "key", string(c))
			continue
		}

		start := time.Now()
		if err := pub.Publish(ctx, state); err != nil {
			logger.Error("publish failed", "state", state, "error", err)
			continue
		}
		logger.Info("published", "state", state, "took", time.Since(start))
	}
}
