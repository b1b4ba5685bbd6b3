package clipsdk

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
)

// PollFunc polls the backend until the handshake resolves to a provider
// token, the poll budget is exhausted (ErrHandshakeTimeout), or ctx is
// cancelled (ErrHandshakeCancelled).
type PollFunc func(ctx context.Context) (string, error)

// Surface is the strategy for getting the user in front of the provider's
// authorization page. The orchestrator picks one at handshake start and is
// agnostic to which: both resolve a pending handshake to a provider token.
type Surface interface {
	Resolve(ctx context.Context, hs PendingHandshake, poll PollFunc) (string, error)
}

// InteractiveSurface opens the user's browser at the authorization URL and
// polls inline. Cancel abandons the flow immediately, mirroring the user
// closing the provider window.
type InteractiveSurface struct {
	// OpenBrowser launches a browser at the authorization URL. Defaults to
	// the platform opener; replace it in tests.
	OpenBrowser func(url string) error

	// Announce, when set, is called with the authorization URL before the
	// browser opens, so the flow survives a failed launch.
	Announce func(url string)

	cancel     chan struct{}
	cancelOnce sync.Once
}

// NewInteractiveSurface creates a surface using the platform browser opener.
func NewInteractiveSurface() *InteractiveSurface {
	return &InteractiveSurface{
		OpenBrowser: openBrowser,
		cancel:      make(chan struct{}),
	}
}

// Cancel abandons the handshake. Safe to call multiple times and from any
// goroutine; the in-flight Resolve returns ErrHandshakeCancelled.
func (s *InteractiveSurface) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

func (s *InteractiveSurface) Resolve(ctx context.Context, hs PendingHandshake, poll PollFunc) (string, error) {
	if s.Announce != nil {
		s.Announce(hs.AuthURL)
	}
	if s.OpenBrowser != nil {
		// Best effort: the URL is announced separately, so a failed
		// launch still leaves the user a path to authorize.
		_ = s.OpenBrowser(hs.AuthURL)
	}

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()

	go func() {
		select {
		case <-s.cancel:
			cancelPoll()
		case <-pollCtx.Done():
		}
	}()

	return poll(pollCtx)
}

// RedirectSurface persists the handshake to durable state and announces the
// authorization URL instead of polling. It is for constrained environments
// where the process cannot stay alive while the user authorizes; the login
// is later completed with Orchestrator.Resume.
type RedirectSurface struct {
	state StateStore

	// Announce is called with the authorization URL the user must visit
	// before resuming the handshake.
	Announce func(url string)
}

// NewRedirectSurface creates a surface that parks handshakes in state.
func NewRedirectSurface(state StateStore) *RedirectSurface {
	return &RedirectSurface{state: state}
}

func (s *RedirectSurface) Resolve(ctx context.Context, hs PendingHandshake, poll PollFunc) (string, error) {
	if err := s.state.SaveHandshake(ctx, hs); err != nil {
		return "", fmt.Errorf("failed to persist handshake: %w", err)
	}
	if s.Announce != nil {
		s.Announce(hs.AuthURL)
	}
	return "", ErrHandshakePending
}

// openBrowser launches the platform's default browser at url.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
