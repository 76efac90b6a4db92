package memory

import (
	"fmt"
	"strings"

	"github.com/entrhq/rankforge/pkg/types"
)

// InitialItemMemory renders the fixed seed description for an item from its
// catalog metadata. The format is deliberately stable: previously seeded
// experiments must stay readable.
func InitialItemMemory(item types.Item) string {
	return fmt.Sprintf("'main_category':%s, 'item_title': '%s', 'item_subtitle': '%s', 'item_class': '%s', 'item_price': '%s'",
		item.MainCategory, item.Title, item.Subtitle, item.Categories, item.Price)
}

// InitialUserMemory renders the fixed seed self-introduction for the base
// variant, naming every domain in the run.
func InitialUserMemory(domains []string) string {
	if len(domains) < 2 {
		return fmt.Sprintf("I enjoy %s very much.", strings.Join(domains, ""))
	}
	head := strings.Join(domains[:len(domains)-1], ", ")
	return fmt.Sprintf("I enjoy %s and %s very much.", head, domains[len(domains)-1])
}

// InitialDomainMemory renders the per-domain seed used for both the private
// and cross-domain files in the cross-domain variant.
func InitialDomainMemory(domain string) string {
	return fmt.Sprintf("I am an Amazon buyer, and I enjoy %s very much.", domain)
}

// SeedBase initializes the base-variant namespace: one description per item
// from catalog metadata, one seed self-introduction per user, and a
// long-memory log primed with the same seed.
func (s *Store) SeedBase(items []types.Item, userIDs []string, domains []string) error {
	for _, item := range items {
		if err := s.WriteItem(item.ID, InitialItemMemory(item)); err != nil {
			return err
		}
	}
	seed := InitialUserMemory(domains)
	for _, userID := range userIDs {
		if err := s.WriteUser(userID, seed); err != nil {
			return err
		}
		if err := s.write(s.longPath(userID), seed); err != nil {
			return err
		}
	}
	return nil
}

// SeedCrossDomain initializes the cross-domain namespace. userDomains maps
// each user to the domains they have interactions in; only those domains
// get private/cross-domain seed files.
func (s *Store) SeedCrossDomain(items []types.Item, userDomains map[string][]string) error {
	for _, item := range items {
		if err := s.WriteItem(item.ID, InitialItemMemory(item)); err != nil {
			return err
		}
	}
	for userID, domains := range userDomains {
		for _, domain := range domains {
			seed := InitialDomainMemory(domain)
			if err := s.WritePrivate(userID, domain, seed); err != nil {
				return err
			}
			if err := s.WriteCrossDomain(userID, domain, seed); err != nil {
				return err
			}
		}
	}
	return nil
}
