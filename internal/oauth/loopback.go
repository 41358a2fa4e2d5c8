package oauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
)

// loopbackListener is a short-lived HTTP server bound to an ephemeral
// localhost port, used only to catch the single OAuth2 redirect that
// carries the authorization code.
type loopbackListener struct {
	listener net.Listener
	server   *http.Server
	port     int
	codeCh   chan string
	errCh    chan error
}

func newLoopbackListener() (*loopbackListener, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	l := &loopbackListener{
		listener: ln,
		port:     ln.Addr().(*net.TCPAddr).Port,
		codeCh:   make(chan string, 1),
		errCh:    make(chan error, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleRedirect)
	l.server = &http.Server{Handler: mux}

	go func() {
		if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			select {
			case l.errCh <- err:
			default:
			}
		}
	}()

	return l, nil
}

func (l *loopbackListener) handleRedirect(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		fmt.Fprintf(w, "Authorization failed: %s. You may close this tab.", errParam)
		select {
		case l.errCh <- fmt.Errorf("authorization denied: %s", errParam):
		default:
		}
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	fmt.Fprint(w, "Authorization complete. You may close this tab and return to the terminal.")
	select {
	case l.codeCh <- code:
	default:
	}
}

func (l *loopbackListener) awaitCode(ctx context.Context) (string, error) {
	select {
	case code := <-l.codeCh:
		return code, nil
	case err := <-l.errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *loopbackListener) Close() error {
	return l.server.Close()
}
