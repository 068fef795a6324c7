package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches sess to ctx for downstream handlers.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the request session, or nil outside the
// session middleware.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// SessionUser is a shortcut for the authenticated user ID on ctx. Returns
// "" when there is no session or the session is anonymous.
func SessionUser(ctx context.Context) string {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess.User()
	}
	return ""
}
