package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	p, err := Join("memorials", "juan", "mods", "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "memorials/juan/mods/uid-1", p)

	_, err = Join("memorials", "", "mods")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = Join("memorials", "a/b")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestPathShape(t *testing.T) {
	assert.True(t, IsDocument("admins/uid-1"))
	assert.False(t, IsDocument("admins"))
	assert.True(t, IsCollection("memorials/juan/candles"))
	assert.False(t, IsCollection("memorials/juan"))

	assert.Equal(t, "memorials/juan/candles", Parent("memorials/juan/candles/uid-1"))
	assert.Equal(t, "uid-1", Base("memorials/juan/candles/uid-1"))
	assert.Equal(t, "", Parent("admins"))

	assert.NoError(t, CheckDocument("memorials/juan/meta/stats"))
	assert.ErrorIs(t, CheckDocument("memorials//meta/stats"), ErrInvalidPath)
	assert.ErrorIs(t, CheckCollection("memorials/juan"), ErrInvalidPath)
}

func TestMemorialPaths(t *testing.T) {
	assert.Equal(t, "admins/u1", AdminPath("u1"))
	assert.Equal(t, "memorials/m/admin/u1", MemorialAdminPath("m", "u1"))
	assert.Equal(t, "memorials/m/mods/u1", ModPath("m", "u1"))
	assert.Equal(t, "memorials/m/blocked/u1", BlockedPath("m", "u1"))
	assert.Equal(t, "memorials/m/roles/u1", RolePath("m", "u1"))
	assert.Equal(t, "memorials/m/reports/r1", ReportPath("m", "r1"))
	assert.Equal(t, "memorials/m/candles/u1", CandlePath("m", "u1"))
	assert.Equal(t, "memorials/m/meta/stats", StatsPath("m"))
	assert.Equal(t, "memorials/m/photos/3/comments/c1", CommentPath("m", 3, "c1"))
	assert.Equal(t, "memorials/m/photos/3/reactions/u1", ReactionPath("m", 3, "u1"))

	for _, p := range []string{
		AdminPath("u1"), MemorialAdminPath("m", "u1"), StatsPath("m"),
		CommentPath("m", 0, "c"), ReactionPath("m", 0, "u"),
	} {
		assert.True(t, IsDocument(p), p)
	}
	assert.True(t, IsCollection(CommentsCollection("m", 1)))
	assert.True(t, IsCollection(AdminsCollection()))
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("uid-123"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("a/b"))
	assert.False(t, ValidID(".."))
}
