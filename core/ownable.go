package core

type (
	// Actor is an authenticated user acting on an entity.
	Actor interface {
		ActorID() string
		Superuser() bool
	}

	// Ownable is any entity with an owning user relation: a classroom's
	// creator, a post's author, an enrollment's student.
	Ownable interface {
		OwnerID() string
	}
)

// CanModify reports whether usr may update or delete obj.
// It must be checked server-side on every mutation of an owned entity;
// callers translate a refusal into a generic not-found response so that
// unauthorized users cannot probe for entity existence.
func CanModify(obj Ownable, usr Actor) bool {
	return usr.Superuser() || obj.OwnerID() == usr.ActorID()
}
