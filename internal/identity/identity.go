// Package identity resolves the current user. The rest of the application
// treats authentication as a black box: all it ever asks for is an opaque
// user id, or nil when browsing anonymously.
package identity

// Resolver reports the currently signed-in user's opaque id, or nil.
type Resolver interface {
	CurrentUserID() *string
}

// Static is a Resolver with a fixed answer.
type Static struct {
	id *string
}

// Anonymous returns a resolver for a signed-out session.
func Anonymous() *Static {
	return &Static{}
}

// User returns a resolver for a session signed in as the given id.
func User(id string) *Static {
	return &Static{id: &id}
}

// CurrentUserID implements Resolver.
func (s *Static) CurrentUserID() *string {
	return s.id
}
