// Package dataset loads the external tables a run consumes: the
// time-ordered interaction feed, the item catalog, the per-domain negative
// candidate pools, and the optional group membership table. All tables are
// read-only once loaded.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/entrhq/rankforge/pkg/types"
)

// readTable opens a CSV file and returns its header and rows.
func readTable(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("dataset: %s is empty", path)
	}
	return records[0], records[1:], nil
}

// columnIndex maps header names to positions, requiring the named columns.
func columnIndex(header []string, path string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("dataset: %s is missing required column %q", path, name)
		}
	}
	return idx, nil
}

// LoadInteractions reads the interaction feed. Rows keep file order, which
// is ascending timestamp order; the caller must not reorder them because
// memory updates are stateful.
func LoadInteractions(path string) ([]types.Interaction, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, path, "user_id", "parent_asin", "timestamp", "rating")
	if err != nil {
		return nil, err
	}

	out := make([]types.Interaction, 0, len(rows))
	for i, row := range rows {
		ts, err := parseTimestamp(row[idx["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("dataset: %s row %d: %w", path, i+2, err)
		}
		rating, _ := strconv.ParseFloat(strings.TrimSpace(row[idx["rating"]]), 64)
		out = append(out, types.Interaction{
			UserID:    strings.TrimSpace(row[idx["user_id"]]),
			ItemID:    strings.TrimSpace(row[idx["parent_asin"]]),
			Timestamp: ts,
			Rating:    rating,
		})
	}
	return out, nil
}

func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	// Some exports carry fractional epoch values.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}
	return int64(f), nil
}

// Catalog indexes item metadata by item id.
type Catalog struct {
	items map[string]types.Item
}

// LoadCatalog reads the item metadata table.
func LoadCatalog(path string) (*Catalog, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, path, "parent_asin", "title", "main_category")
	if err != nil {
		return nil, err
	}

	optional := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	items := make(map[string]types.Item, len(rows))
	for _, row := range rows {
		item := types.Item{
			ID:           strings.TrimSpace(row[idx["parent_asin"]]),
			Title:        row[idx["title"]],
			MainCategory: strings.TrimSpace(row[idx["main_category"]]),
			Subtitle:     optional(row, "subtitle"),
			Categories:   optional(row, "categories"),
			Price:        optional(row, "price"),
		}
		items[item.ID] = item
	}
	return &Catalog{items: items}, nil
}

// Item looks up an item by id.
func (c *Catalog) Item(itemID string) (types.Item, bool) {
	item, ok := c.items[itemID]
	return item, ok
}

// Title returns the item's title, or "nan" when the item is unknown,
// matching the placeholder the evaluator uses for unreadable candidates.
func (c *Catalog) Title(itemID string) string {
	if item, ok := c.items[itemID]; ok {
		return item.Title
	}
	return "nan"
}

// Items returns every catalog entry.
func (c *Catalog) Items() []types.Item {
	out := make([]types.Item, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	return out
}

// CandidatePool holds each user's precomputed negative item ids for one
// domain. Rows are fixed width (100 columns in the shipped datasets).
type CandidatePool struct {
	rows map[string][]string
}

// LoadCandidatePool reads a pool table. The first column is the user id;
// the remaining item_<n> columns are the candidate ids.
func LoadCandidatePool(path string) (*CandidatePool, error) {
	_, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	pool := make(map[string][]string, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("dataset: %s row %d has no candidate columns", path, i+2)
		}
		userID := strings.TrimSpace(row[0])
		candidates := make([]string, len(row)-1)
		for j, id := range row[1:] {
			candidates[j] = strings.TrimSpace(id)
		}
		pool[userID] = candidates
	}
	return &CandidatePool{rows: pool}, nil
}

// Row returns the user's candidate ids.
func (p *CandidatePool) Row(userID string) ([]string, bool) {
	row, ok := p.rows[userID]
	return row, ok
}

// GroupTable maps interest-group names to their member user ids.
type GroupTable struct {
	groups map[string][]string
}

// LoadGroupTable reads the cluster membership table. The group_users column
// carries a bracketed, quoted id list as exported by the clustering
// pipeline.
func LoadGroupTable(path string) (*GroupTable, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, path, "group_name", "group_users")
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]string, len(rows))
	for _, row := range rows {
		name := strings.Trim(strings.TrimSpace(row[idx["group_name"]]), `"`)
		groups[name] = parseIDList(row[idx["group_users"]])
	}
	return &GroupTable{groups: groups}, nil
}

// parseIDList unpacks "['id1', 'id2']" style exports.
func parseIDList(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		id := strings.Trim(strings.TrimSpace(p), `'" `)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// GroupsContaining returns the names of every group the user belongs to.
func (g *GroupTable) GroupsContaining(userID string) []string {
	var out []string
	for name, members := range g.groups {
		for _, m := range members {
			if m == userID {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// Members returns a group's user ids.
func (g *GroupTable) Members(name string) []string {
	return g.groups[name]
}

// Names returns every group name.
func (g *GroupTable) Names() []string {
	out := make([]string, 0, len(g.groups))
	for name := range g.groups {
		out = append(out, name)
	}
	return out
}
