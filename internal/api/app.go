package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func newServer(port int, h *Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// RunServer runs the local API. This is a blocking call.
func RunServer(port int, h *Handler) error {
	srv := newServer(port, h)
	log.Infof("commitlens listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunServerInterruptible runs the server in a goroutine and returns immediately. Closing or
// sending on stop shuts the server down gracefully; done then yields the server's exit error.
func RunServerInterruptible(port int, h *Handler) (stop chan<- struct{}, done <-chan error) {
	srv := newServer(port, h)

	stopCh := make(chan struct{})
	doneCh := make(chan error, 1)

	go func() {
		log.Infof("commitlens listening on %s", srv.Addr)
		err := srv.ListenAndServe()
		// ErrServerClosed is the normal result of Shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneCh <- err
			return
		}
		doneCh <- nil
	}()

	go func() {
		<-stopCh
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	}()
	return stopCh, doneCh
}
