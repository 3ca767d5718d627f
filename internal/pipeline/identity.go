package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// idTimeLayout is the full ISO-8601 date+time, without a zone suffix. The
// date part is what disambiguates the same Tuesday slot across weeks.
const idTimeLayout = "2006-01-02T15:04:05"

// EventID derives the deterministic calendar identifier for one lesson slot.
// The same (start, end, title, room) quadruple always maps to the same id,
// so repeated runs converge on the same calendar events instead of
// duplicating them. MD5 is used for distribution, not for strength.
//
// The "mo_" prefix scopes this integration's id space: the sync only ever
// overwrites events it issued itself, even on a calendar shared with other
// writers.
func EventID(start, end time.Time, title, room string) string {
	sum := md5.Sum([]byte(
		start.Format(idTimeLayout) + "|" + end.Format(idTimeLayout) + "|" + title + "|" + room,
	))
	return "mo_" + hex.EncodeToString(sum[:])
}
