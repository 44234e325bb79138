package download

import (
	"fmt"
	"path"
	"strings"

	"avatardl/internal/localdir"
	"avatardl/internal/resolve"
)

// namer reserves output paths for one batch so no two tasks share a file.
type namer struct {
	avatarDirs map[string]string // folded dir -> avatar id
	reserved   map[string]struct{}
}

func newNamer() *namer {
	return &namer{
		avatarDirs: make(map[string]string),
		reserved:   make(map[string]struct{}),
	}
}

// avatarDir returns the per-avatar directory, suffixing the avatar ID when
// two avatars sanitise to the same name.
func (n *namer) avatarDir(avatarID, name string) string {
	dir := localdir.SanitizeName(name)
	if dir == "" {
		dir = localdir.SanitizeName(avatarID)
	}
	if dir == "" {
		dir = "avatar"
	}
	for attempt := 0; ; attempt++ {
		candidate := dir
		switch attempt {
		case 0:
		case 1:
			candidate = fmt.Sprintf("%s (%s)", dir, localdir.SanitizeName(avatarID))
		default:
			candidate = fmt.Sprintf("%s (%s-%d)", dir, localdir.SanitizeName(avatarID), attempt)
		}
		key := localdir.FoldName(candidate)
		owner, taken := n.avatarDirs[key]
		if !taken || owner == avatarID {
			n.avatarDirs[key] = avatarID
			return candidate
		}
	}
}

// reserve picks a unique relative path for a descriptor. The second result is
// true when the extension must be derived from the response content type.
func (n *namer) reserve(dir string, d resolve.FileDescriptor) (string, bool) {
	filename := localdir.SanitizeName(d.Filename)
	needsExtension := filename == ""
	if needsExtension {
		filename = d.ID
	}
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for i := 1; ; i++ {
		candidate := filename
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		rel := dir + "/" + candidate
		key := localdir.FoldName(rel)
		if _, taken := n.reserved[key]; taken {
			continue
		}
		n.reserved[key] = struct{}{}
		return rel, needsExtension
	}
}
