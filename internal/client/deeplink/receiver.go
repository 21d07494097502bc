package deeplink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/appauth/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 3 * time.Second

// NewReceiver returns the loopback handler for forwarded verification links.
// Accepted tokens are republished as links in the application's scheme.
//
//	GET /verify?userId=..&secret=..  publishes scheme://verify?userId=..&secret=..
//	GET /healthz                     liveness
func NewReceiver(pub Publisher, scheme string, logger logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/verify", func(w http.ResponseWriter, req *http.Request) {
		tok, ok := FromQuery(req.URL.Query())
		if !ok {
			logger.Debug(req.Context(), "receiver: link without token ignored")
			http.Error(w, "missing userId or secret", http.StatusBadRequest)
			return
		}
		link := Build(scheme, tok)
		pub.Publish(link)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "Verification link received. You can return to the app.")
		_, _ = fmt.Fprintln(w, "If nothing happens, open this link in the app:", link)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// Serve runs h on addr until ctx is done. ready, if not nil, receives the
// bound address once the listener is open.
func Serve(ctx context.Context, addr string, h http.Handler, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if ready != nil {
		ready(ln.Addr())
	}

	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
