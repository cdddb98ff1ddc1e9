package domain

import "strings"

// ValidDocumentID reports whether id can stand for exactly one segment of a
// document store path. Ids are interpolated into paths such as
// projects/{pid}/users/{uid}, so a "/" would address a different collection.
func ValidDocumentID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.Contains(id, "/")
}
