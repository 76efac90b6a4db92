package eval

import (
	"fmt"
	"strings"

	"github.com/entrhq/rankforge/pkg/agent/memory"
	"github.com/entrhq/rankforge/pkg/dataset"
	"github.com/entrhq/rankforge/pkg/types"
)

// MaterializeGroupMemory writes one shared memory file per interest group:
// a header naming the group plus one "<domain>:t1;t2;..." line per domain
// listing the titles the group's members interacted with during training,
// in feed order. The evaluator later keeps only the most recent titles for
// the interaction's domain.
func MaterializeGroupMemory(store *memory.Store, groups *dataset.GroupTable,
	catalog *dataset.Catalog, resolver *dataset.Resolver,
	feed []types.Interaction, domains []string) error {

	for _, name := range groups.Names() {
		members := make(map[string]bool)
		for _, m := range groups.Members(name) {
			members[m] = true
		}

		titlesByDomain := make(map[string][]string, len(domains))
		for _, inter := range feed {
			if !members[inter.UserID] {
				continue
			}
			item, ok := catalog.Item(inter.ItemID)
			if !ok {
				continue
			}
			domain, err := resolver.Domain(item.MainCategory)
			if err != nil {
				continue
			}
			titlesByDomain[domain] = append(titlesByDomain[domain], item.Title)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Users who have similar preferences to me in %s have interacted with the following items recently:\n\n", name)
		for _, domain := range domains {
			fmt.Fprintf(&b, "%s:%s\n", domain, strings.Join(titlesByDomain[domain], ";"))
		}

		if err := store.WriteGroupMemory(name, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// groupMemoryText assembles the group memory block for one user and one
// domain: for each group the user belongs to, the header line plus the most
// recent maxTitles titles in that domain. Missing group files are skipped;
// group memory is advisory context, not state.
func groupMemoryText(store *memory.Store, groups *dataset.GroupTable, userID, domain string, maxTitles int) string {
	var b strings.Builder
	for _, name := range groups.GroupsContaining(userID) {
		raw, err := store.ReadGroupMemory(name)
		if err != nil {
			continue
		}
		lines := strings.Split(raw, "\n")
		if len(lines) == 0 {
			continue
		}
		b.WriteString(lines[0])
		b.WriteString("\n")

		prefix := domain + ":"
		for _, line := range lines[1:] {
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			titles := strings.Split(strings.TrimPrefix(line, prefix), ";")
			if len(titles) > maxTitles {
				titles = titles[len(titles)-maxTitles:]
			}
			fmt.Fprintf(&b, "%s%s\n", prefix, strings.Join(titles, ";"))
		}
	}
	return b.String()
}
