package session

import "maps"

// Status is the authentication state of the session.
type Status uint8

const (
	// StatusUnauthenticated means no identity and no credentials are held.
	StatusUnauthenticated Status = iota
	// StatusAuthenticated means a complete credential pair is held.
	StatusAuthenticated
	// StatusRefreshing means a credential renewal is in flight for this session.
	StatusRefreshing
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	case StatusRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Identity is the authenticated user as reported by the API.
type Identity struct {
	UserID     string
	Username   string
	Email      string
	Attributes map[string]string
}

// Clone returns a deep copy of the identity.
func (i Identity) Clone() Identity {
	out := i
	out.Attributes = maps.Clone(i.Attributes)
	return out
}

// CredentialPair holds the bearer credentials. Both halves are issued together
// and replaced together.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}

// Complete reports whether both halves of the pair are present.
func (p CredentialPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Snapshot is an immutable view of the session at one point in time.
//
// Generation increases on every SetSession and Clear; a refresh cycle records it
// when it starts and uses it to detect that the session was replaced meanwhile.
type Snapshot struct {
	Identity    Identity
	Credentials CredentialPair
	Status      Status
	Generation  uint64
	UpdatedAt   int64
}

// Empty reports whether the snapshot is the logged-out sentinel.
func (s Snapshot) Empty() bool {
	return s.Status == StatusUnauthenticated
}

// Authenticated reports whether requests can carry an access credential.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated || s.Status == StatusRefreshing
}

// Record is the persisted form of a session.
type Record struct {
	Identity    Identity
	Credentials CredentialPair
	UpdatedAt   int64
}
