package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Deleting a movie must cascade to its dependent rows while past nights keep
// their row with the winner detached.
func TestInitSchemaMovieDeleteConstraints(t *testing.T) {
	b, err := migrationsFS.ReadFile("migrations/0001_init.up.sql")
	require.NoError(t, err)
	stmts := strings.Split(string(b), "CREATE TABLE ")

	block := func(name string) string {
		for _, s := range stmts {
			if strings.HasPrefix(s, name+" ") {
				return s
			}
		}
		return ""
	}

	cascading := []string{
		"movie_aliases", "movie_genres", "movie_themes", "ratings",
		"night_candidates", "review_flags", "resolutions",
	}
	for _, tbl := range cascading {
		ddl := block(tbl)
		require.NotEmpty(t, ddl, tbl)
		assert.Contains(t, ddl, "REFERENCES movies(id) ON DELETE CASCADE", tbl)
	}

	nights := block("movie_nights")
	require.NotEmpty(t, nights)
	assert.Contains(t, nights, "winner_movie_id")
	assert.Contains(t, nights, "ON DELETE SET NULL",
		"deleting a winner must keep the night")
	assert.NotContains(t, nights, "ON DELETE CASCADE")

	for _, tbl := range []string{"night_candidates", "night_attendees"} {
		assert.Contains(t, block(tbl), "REFERENCES movie_nights(id) ON DELETE CASCADE", tbl)
	}
}
