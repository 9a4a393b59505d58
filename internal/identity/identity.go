// Package identity defines the narrow contract to whatever authentication
// layer the host provides. The chat core never performs auth itself; it
// only asks who the current account is and partitions history by it.
package identity

import "strings"

// Account describes the signed-in user, or the lack of one.
type Account struct {
	Authenticated bool
	Endpoint      string
	Username      string
}

// Anonymous is the unauthenticated account. History operations against it
// are no-ops by contract.
var Anonymous = Account{}

// Key derives the storage partition key for this account from the server
// endpoint and username. Unauthenticated accounts have no key.
func (a Account) Key() string {
	if !a.Authenticated {
		return ""
	}
	ep := strings.TrimSuffix(a.Endpoint, "/")
	ep = strings.TrimPrefix(ep, "https://")
	ep = strings.TrimPrefix(ep, "http://")
	return ep + "-" + a.Username
}

// Provider yields the current account. Implementations may be backed by a
// secret store, an editor host, or a fixed value in tests.
type Provider interface {
	CurrentAccount() Account
}

// Static is a fixed-account Provider for tests and single-user CLI runs.
type Static struct {
	Account Account
}

func (s Static) CurrentAccount() Account { return s.Account }
