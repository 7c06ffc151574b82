package roster

import (
	"context"
	"strings"
	"unicode"

	appErrors "github.com/mailops/console-backend/internal/errors"
	"github.com/mailops/console-backend/internal/model"
)

// ContactStore is the slice of the contact store the resolver needs.
type ContactStore interface {
	ListMembers(ctx context.Context, listIDs []int) ([]model.Contact, error)
}

// Resolver expands target list IDs into the campaign roster.
type Resolver struct {
	Store ContactStore
}

func NewResolver(store ContactStore) *Resolver {
	return &Resolver{Store: store}
}

// Resolve returns the deduplicated, subscribed-only roster for the given
// lists. First occurrence of an email wins. All-or-nothing: on any store
// error no partial roster is returned, so progress is never computed against
// a roster that would later change size.
func (r *Resolver) Resolve(ctx context.Context, listIDs []int) ([]model.Recipient, error) {
	contacts, err := r.Store.ListMembers(ctx, listIDs)
	if err != nil {
		return nil, appErrors.NewResolutionFailed(err)
	}

	seen := make(map[string]bool, len(contacts))
	recipients := make([]model.Recipient, 0, len(contacts))
	for _, c := range contacts {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		if c.Status != "subscribed" {
			continue
		}
		recipients = append(recipients, model.Recipient{
			Email:      email,
			Name:       DisplayName(c),
			Subscribed: true,
		})
	}
	return recipients, nil
}

// DisplayName prefers the explicit contact name; otherwise derives one from
// the local part of the email, e.g. "jane.van_dyk@x.io" → "Jane Van Dyk".
func DisplayName(c model.Contact) string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name != "" {
		return name
	}
	local := c.Email
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	local = strings.Map(func(r rune) rune {
		switch r {
		case '.', '_', '-', '+':
			return ' '
		}
		return r
	}, local)
	return titleWords(local)
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
