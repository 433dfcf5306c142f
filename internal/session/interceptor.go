package session

import (
	"context"
	"net/http"
	"sync"

	"hmsportal/internal/apiclient"
	"hmsportal/internal/nav"
)

type storeKey struct{}

// WithStore attaches the requesting client's store to ctx so the shared API
// client can find its token.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// FromContext returns the store attached to ctx.
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(storeKey{}).(*Store)
	return s, ok && s != nil
}

// Install registers the bearer-token and 401 interceptors on client. It is
// idempotent: while installed, further calls register nothing and return the
// same eject func. Eject may be called more than once.
func (r *Registry) Install(client *apiclient.Client) (eject func()) {
	r.installMu.Lock()
	defer r.installMu.Unlock()

	if existing, ok := r.installed[client]; ok {
		return existing
	}

	ejectRequest := client.UseRequest(attachToken)
	ejectResponse := client.UseResponse(r.rejectUnauthorized)

	var once sync.Once
	eject = func() {
		once.Do(func() {
			ejectRequest()
			ejectResponse()
			r.installMu.Lock()
			delete(r.installed, client)
			r.installMu.Unlock()
		})
	}
	r.installed[client] = eject
	return eject
}

func attachToken(req *http.Request) error {
	s, ok := FromContext(req.Context())
	if !ok {
		return nil
	}
	if token := s.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// rejectUnauthorized clears the requesting client's session on any 401 and
// asks the shell to navigate to the login page, whichever page sent the request.
func (r *Registry) rejectUnauthorized(resp *http.Response) error {
	if resp.StatusCode != http.StatusUnauthorized || resp.Request == nil {
		return nil
	}
	ctx := resp.Request.Context()
	if s, ok := FromContext(ctx); ok {
		s.Invalidate(context.WithoutCancel(ctx))
	}
	r.metrics.RecordForcedLogout()
	nav.FromContext(ctx).Navigate(nav.LoginPath)
	return nil
}
