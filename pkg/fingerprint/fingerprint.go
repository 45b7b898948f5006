package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// NoteVersion carries everything that makes an embedding valid for a note.
// Both content edits and approval transitions change the fingerprint, so an
// embedding stamped with an older fingerprint is stale by definition.
type NoteVersion struct {
	Subjective   string
	Objective    string
	Assessment   string
	Plan         string
	AiApproved   bool
	UserApproved bool
}

// Compute returns a stable hex digest for a note version.
// Section contents are joined with a unit separator so moving text between
// sections produces a different digest.
func Compute(v NoteVersion) string {
	var b strings.Builder
	b.WriteString(v.Subjective)
	b.WriteByte(0x1f)
	b.WriteString(v.Objective)
	b.WriteByte(0x1f)
	b.WriteString(v.Assessment)
	b.WriteByte(0x1f)
	b.WriteString(v.Plan)
	b.WriteByte(0x1f)
	b.WriteString(strconv.FormatBool(v.AiApproved))
	b.WriteByte(0x1f)
	b.WriteString(strconv.FormatBool(v.UserApproved))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
