// Package groups answers whether an authenticated user belongs to
// workspace groups, by paging through the directory listing with an
// impersonated service credential and intersecting the result with the
// requested group set.
package groups

import (
	"context"
	"fmt"

	"github.com/gmo-common/google-auth-go/pkg/auth"
	"github.com/gmo-common/google-auth-go/pkg/directory"
)

// Resolver queries group membership for one workspace domain. Results
// are never cached; every predicate re-queries the directory.
type Resolver struct {
	dir         directory.Client
	domain      string
	groupEmails []string
}

type Option func(r *Resolver)

// WithClient replaces the directory transport. Used in tests.
func WithClient(client directory.Client) Option {
	return func(r *Resolver) {
		r.dir = client
	}
}

// NewResolver builds a resolver from an authenticated session. The
// session must already hold a service credential; group checks without
// one are a configuration error.
func NewResolver(session *auth.Session, domain string, groupEmails []string, opts ...Option) (*Resolver, error) {
	if session.ServiceAccount() == nil {
		return nil, auth.ErrServiceAccountMissing
	}

	r := &Resolver{
		domain:      domain,
		groupEmails: groupEmails,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.dir == nil {
		r.dir = directory.NewHTTPClient(session.ServiceAccount())
	}

	return r, nil
}

// GroupEmails returns the configured policy group list.
func (r *Resolver) GroupEmails() []string {
	return r.groupEmails
}

// SetGroupEmails replaces the configured policy group list.
func (r *Resolver) SetGroupEmails(groupEmails []string) {
	r.groupEmails = groupEmails
}

// GroupsForUser merges all pages of the user's group listing into one
// ordered slice of group emails. Upstream order is preserved and
// duplicates are not collapsed. Each page is requested with the cursor
// of the previous response; the loop ends when the upstream returns no
// cursor.
func (r *Resolver) GroupsForUser(ctx context.Context, user *auth.User) ([]string, error) {
	userKey := user.Email()
	if userKey == "" {
		return nil, fmt.Errorf("user has no email to query the directory with")
	}

	var emails []string
	pageToken := ""
	for {
		page, err := r.dir.ListGroups(ctx, &directory.ListGroupsRequest{
			Domain:    r.domain,
			UserKey:   userKey,
			PageToken: pageToken,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to list groups for %s: %w", userKey, err)
		}

		for _, group := range page.Groups {
			emails = append(emails, group.Email)
		}

		if page.NextPageToken == "" {
			return emails, nil
		}
		pageToken = page.NextPageToken
	}
}

// IsUserInGroup reports whether the user belongs to the given group.
func (r *Resolver) IsUserInGroup(ctx context.Context, user *auth.User, groupEmail string) (bool, error) {
	return r.IsUserInAnyGroup(ctx, user, []string{groupEmail})
}

// IsUserInAnyGroup reports whether the user belongs to at least one of
// the given groups. An empty group set can never intersect, so the
// answer is false.
func (r *Resolver) IsUserInAnyGroup(ctx context.Context, user *auth.User, groupEmails []string) (bool, error) {
	matched, _, err := r.intersect(ctx, user, groupEmails)
	if err != nil {
		return false, err
	}
	return matched > 0, nil
}

// IsUserInAllGroups reports whether the user belongs to every one of the
// given groups: the intersection must cover the whole requested set. An
// empty requested set is vacuously satisfied; see the package
// documentation before gating access on an empty policy.
func (r *Resolver) IsUserInAllGroups(ctx context.Context, user *auth.User, groupEmails []string) (bool, error) {
	matched, requested, err := r.intersect(ctx, user, groupEmails)
	if err != nil {
		return false, err
	}
	return matched == requested, nil
}

// IsUserAuthorized applies the configured policy group list with
// any-membership semantics.
func (r *Resolver) IsUserAuthorized(ctx context.Context, user *auth.User) (bool, error) {
	return r.IsUserInAnyGroup(ctx, user, r.groupEmails)
}

// intersect returns the cardinality of the intersection between the
// user's groups and the requested set, along with the cardinality of the
// requested set itself. Both sides are treated as sets: duplicates do
// not inflate either count.
func (r *Resolver) intersect(ctx context.Context, user *auth.User, groupEmails []string) (matched, requested int, err error) {
	memberships, err := r.GroupsForUser(ctx, user)
	if err != nil {
		return 0, 0, err
	}

	memberOf := make(map[string]bool, len(memberships))
	for _, email := range memberships {
		memberOf[email] = true
	}

	seen := make(map[string]bool, len(groupEmails))
	for _, email := range groupEmails {
		if seen[email] {
			continue
		}
		seen[email] = true
		requested++
		if memberOf[email] {
			matched++
		}
	}

	return matched, requested, nil
}
