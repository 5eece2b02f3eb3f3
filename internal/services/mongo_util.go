package services

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// parseObjectID treats any malformed id as absent.
func parseObjectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

var dupKeyIndex = regexp.MustCompile(`index: (?:\S+\.)?\$?([A-Za-z_]+?)_-?1`)

// duplicateField extracts the offending field from an E11000 message, e.g.
// "index: email_1 dup key" -> "email".
func duplicateField(err error) string {
	if m := dupKeyIndex.FindStringSubmatch(err.Error()); len(m) == 2 {
		return m[1]
	}
	return "field"
}
