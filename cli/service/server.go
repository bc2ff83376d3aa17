package service

import (
	"context"
	"net"
	"net/http"
	"os"
)

// StartCLIServer serves the manager on a unix socket until the context
// is done. A stale socket from a previous run is removed first.
func StartCLIServer(socketPath string, manager *Manager, ctx context.Context) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return err
	}

	lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: socketPath, Net: "unix"})
	if err != nil {
		return err
	}

	server := &http.Server{Handler: manager.Handler()}

	kill := make(chan struct{})
	defer close(kill)
	go func() {
		select {
		case <-ctx.Done():
			_ = server.Shutdown(context.Background())
		case <-kill:
		}
	}()

	if err := server.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
