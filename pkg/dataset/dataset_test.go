package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadInteractions(t *testing.T) {
	path := writeCSV(t, "inter.csv",
		"user_id,parent_asin,timestamp,rating\n"+
			"u1,b1,1609459200,5.0\n"+
			"u2,b2,1609459201.5,3.0\n")

	feed, err := LoadInteractions(path)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	assert.Equal(t, "u1", feed[0].UserID)
	assert.Equal(t, "b1", feed[0].ItemID)
	assert.Equal(t, int64(1609459200), feed[0].Timestamp)
	assert.Equal(t, 5.0, feed[0].Rating)

	// Fractional epoch exports truncate.
	assert.Equal(t, int64(1609459201), feed[1].Timestamp)
}

func TestLoadInteractionsMissingColumn(t *testing.T) {
	path := writeCSV(t, "inter.csv", "user_id,parent_asin\nu1,b1\n")
	_, err := LoadInteractions(path)
	assert.Error(t, err)
}

func TestLoadInteractionsBadTimestamp(t *testing.T) {
	path := writeCSV(t, "inter.csv",
		"user_id,parent_asin,timestamp,rating\nu1,b1,not-a-time,5\n")
	_, err := LoadInteractions(path)
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	path := writeCSV(t, "catalog.csv",
		"parent_asin,title,main_category,subtitle,categories,price\n"+
			"b1,The Silent Sea,Books,A Novel,Fiction,12.99\n"+
			"m1,Night Drive,Movies & TV,,,\n")

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	item, ok := catalog.Item("b1")
	require.True(t, ok)
	assert.Equal(t, "The Silent Sea", item.Title)
	assert.Equal(t, "Books", item.MainCategory)
	assert.Equal(t, "A Novel", item.Subtitle)
	assert.Equal(t, "12.99", item.Price)

	assert.Equal(t, "Night Drive", catalog.Title("m1"))
	assert.Equal(t, "nan", catalog.Title("missing"))

	_, ok = catalog.Item("missing")
	assert.False(t, ok)
	assert.Len(t, catalog.Items(), 2)
}

func TestLoadCandidatePool(t *testing.T) {
	path := writeCSV(t, "pool.csv",
		"user_id,item_0,item_1,item_2\n"+
			"u1,b1,b2,b3\n"+
			"u2,b4,b5,b6\n")

	pool, err := LoadCandidatePool(path)
	require.NoError(t, err)

	row, ok := pool.Row("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"b1", "b2", "b3"}, row)

	_, ok = pool.Row("missing")
	assert.False(t, ok)
}

func TestLoadGroupTable(t *testing.T) {
	path := writeCSV(t, "groups.csv",
		"group_name,group_users\n"+
			"readers,\"['u1', 'u2']\"\n"+
			"watchers,\"['u2', 'u3']\"\n")

	groups, err := LoadGroupTable(path)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"readers", "watchers"}, groups.Names())
	assert.Equal(t, []string{"u1", "u2"}, groups.Members("readers"))
	assert.ElementsMatch(t, []string{"readers", "watchers"}, groups.GroupsContaining("u2"))
	assert.Equal(t, []string{"readers"}, groups.GroupsContaining("u1"))
	assert.Empty(t, groups.GroupsContaining("stranger"))
}

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseIDList("['a', 'b']"))
	assert.Equal(t, []string{"a"}, parseIDList(`["a"]`))
	assert.Empty(t, parseIDList("[]"))
	assert.Empty(t, parseIDList(""))
}
