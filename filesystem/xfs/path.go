package xfs

import "strings"

// maxPathDepth caps path-segment recursion, per §4.8's "Cycle protection":
// "Cap recursion depth at 256 path segments."
const maxPathDepth = 256

// ResolvePath implements §4.8: split path at '/', collapsing repeats and
// trimming leading/trailing slashes, then walk from the root inode one
// segment at a time via the directory walker. Symlinks are never
// followed — the resolver returns the symlink inode itself so callers can
// inspect its target explicitly via ReadFile.
func (v *Volume) ResolvePath(path string) (uint64, error) {
	segments := splitPath(path)
	if len(segments) > maxPathDepth {
		return 0, errInvalidData("path has %d segments, exceeding the %d-segment cap", len(segments), maxPathDepth)
	}
	current := v.geometry.RootInode
	for _, seg := range segments {
		if seg == "." {
			continue
		}
		inode, err := v.GetInode(current)
		if err != nil {
			return 0, Annotate(err, "ResolvePath")
		}
		if !inode.IsDirectory() {
			return 0, errInvalidData("path segment %q: inode %d is not a directory", seg, current)
		}
		entries, err := v.ListDirectory(inode)
		if err != nil {
			return 0, Annotate(err, "ResolvePath")
		}
		segBytes := []byte(seg)
		found := false
		for _, e := range entries {
			if bytesEqualFold(e.Name, segBytes) {
				current = e.InodeNumber
				found = true
				break
			}
		}
		if !found {
			return 0, errNotFound("path segment %q not found under inode %d", seg, current)
		}
	}
	return current, nil
}

// splitPath collapses repeated slashes and trims leading/trailing ones,
// per §4.8's algorithm.
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
