// =============================================================================
// listen.go - Listen Mode (`serial-cli connect`)
// =============================================================================
//
// Listen mode prints everything the device sends until the user interrupts.
// It is the only part of the program with more than one goroutine:
//
//   - the reader loops on Receive and streams chunks to the console;
//   - the watcher waits for cancellation and closes the port, which unblocks
//     a reader stuck in Read when the timeout is disabled.
//
// Both run in an errgroup, so a read failure cancels the watcher and the
// first error is returned from runListen.
//
// =============================================================================

package main

import (
	"context"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// listenChunkSize is the largest single read in listen mode.
const listenChunkSize = 256

// receiver is the part of serialshell.PortTransport used by listen mode.
type receiver interface {
	Receive(max int) ([]byte, error)
}

// runListen streams port data to the console until ctx is cancelled or a
// read fails. port is closed when the function returns.
func runListen(ctx context.Context, rx receiver, port io.Closer, console *Console, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total := 0
		for {
			if gctx.Err() != nil {
				logger.Debug("listen stopped", zap.Int("bytes", total))
				return nil
			}
			chunk, err := rx.Receive(listenChunkSize)
			console.Stream(chunk)
			total += len(chunk)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		if err := port.Close(); err != nil {
			logger.Debug("close failed", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	console.FlushStream()
	return err
}
