package shared

import (
	"context"
	"strconv"
)

type sessionContextKey struct{}

type userContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// CurrentUser is the authenticated principal resolved for a request.
type CurrentUser struct {
	ID          int64
	Name        string
	Email       string
	Role        string
	Permissions []string
}

// Can reports whether the user holds perm.
func (u *CurrentUser) Can(perm string) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ContextWithUser stores the resolved user in context.
func ContextWithUser(ctx context.Context, user *CurrentUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the resolved user or nil for guests.
func UserFromContext(ctx context.Context) *CurrentUser {
	user, _ := ctx.Value(userContextKey{}).(*CurrentUser)
	return user
}

// CurrentUserID returns the authenticated user id, falling back to the
// session when the user has not been resolved yet.
func CurrentUserID(ctx context.Context) (int64, bool) {
	if user := UserFromContext(ctx); user != nil {
		return user.ID, true
	}
	sess := SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
