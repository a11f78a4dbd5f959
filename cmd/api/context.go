// cmd/api/context.go
package main

import (
	"context"
	"net/http"

	"github.com/aoideee/kitobchi/internal/data"
)

type contextKey string

const (
	userContextKey      = contextKey("user")
	requestIDContextKey = contextKey("request_id")
)

// contextSetUser returns a copy of r carrying user.
func (app *applicationDependencies) contextSetUser(r *http.Request, user *data.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

// contextGetUser returns the user stored by authenticate, or AnonymousUser
// when the middleware did not run.
func (app *applicationDependencies) contextGetUser(r *http.Request) *data.User {
	user, ok := r.Context().Value(userContextKey).(*data.User)
	if !ok || user == nil {
		return data.AnonymousUser
	}
	return user
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
