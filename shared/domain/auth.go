package domain

// to iterate thru layers: handler -> service -> storage
type Credentials struct {
	Username Username `validate:"required,max=64"`
	// bcrypt refuses more than 72 bytes; max would count runes
	Password Password `validate:"required,bytesmax=72"`
}

type Identity struct {
	Id       UserId
	Username Username
}

// Viewer is the identity of the caller, or nobody.
// The zero value is the anonymous viewer.
type Viewer struct {
	identity      Identity
	authenticated bool
}

func Anonymous() Viewer {
	return Viewer{}
}

func Authenticated(identity Identity) Viewer {
	return Viewer{identity: identity, authenticated: true}
}

func (v Viewer) Identity() (Identity, bool) {
	return v.identity, v.authenticated
}

func (v Viewer) IsAnonymous() bool {
	return !v.authenticated
}
