package docstore

import (
	"strconv"
	"strings"
)

// ValidID reports whether s can be used as a single path segment.
func ValidID(s string) bool {
	return s != "" && len(s) <= 1500 && !strings.Contains(s, "/") && s != "." && s != ".."
}

func AdminPath(uid string) string { return "admins/" + uid }

func AdminsCollection() string { return "admins" }

func MemorialPath(memorialID string) string { return "memorials/" + memorialID }

func MemorialAdminPath(memorialID, uid string) string {
	return MemorialAdminsCollection(memorialID) + "/" + uid
}

func MemorialAdminsCollection(memorialID string) string { return MemorialPath(memorialID) + "/admin" }

func ModPath(memorialID, uid string) string {
	return ModsCollection(memorialID) + "/" + uid
}

func ModsCollection(memorialID string) string { return MemorialPath(memorialID) + "/mods" }

func BlockedPath(memorialID, uid string) string {
	return BlockedCollection(memorialID) + "/" + uid
}

func BlockedCollection(memorialID string) string { return MemorialPath(memorialID) + "/blocked" }

func RolePath(memorialID, uid string) string {
	return RolesCollection(memorialID) + "/" + uid
}

func RolesCollection(memorialID string) string { return MemorialPath(memorialID) + "/roles" }

func ReportPath(memorialID, reportID string) string {
	return ReportsCollection(memorialID) + "/" + reportID
}

func ReportsCollection(memorialID string) string { return MemorialPath(memorialID) + "/reports" }

func CandlePath(memorialID, uid string) string {
	return CandlesCollection(memorialID) + "/" + uid
}

func CandlesCollection(memorialID string) string { return MemorialPath(memorialID) + "/candles" }

func StatsPath(memorialID string) string { return MetaCollection(memorialID) + "/stats" }

func MetaCollection(memorialID string) string { return MemorialPath(memorialID) + "/meta" }

func PhotoPath(memorialID string, photo int) string {
	return MemorialPath(memorialID) + "/photos/" + strconv.Itoa(photo)
}

func CommentPath(memorialID string, photo int, commentID string) string {
	return CommentsCollection(memorialID, photo) + "/" + commentID
}

func CommentsCollection(memorialID string, photo int) string {
	return PhotoPath(memorialID, photo) + "/comments"
}

func ReactionPath(memorialID string, photo int, uid string) string {
	return ReactionsCollection(memorialID, photo) + "/" + uid
}

func ReactionsCollection(memorialID string, photo int) string {
	return PhotoPath(memorialID, photo) + "/reactions"
}
