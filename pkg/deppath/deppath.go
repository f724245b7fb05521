// Package deppath encodes and decodes materialized department paths of the
// form "/1/4/9", where every segment is a department id and the last segment
// is the department itself.
package deppath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const Separator = "/"

var ErrMalformedPath = errors.New("malformed department path")

// Encode appends id to parentPath. A root department has an empty parentPath.
func Encode(parentPath string, id uint64) string {
	return parentPath + Separator + strconv.FormatUint(id, 10)
}

// Root returns the path of a department without a parent.
func Root(id uint64) string {
	return Encode("", id)
}

// DecodeAncestorIDs returns the ids along path from the root down. The
// trailing (self) id is dropped unless includeSelf is set.
func DecodeAncestorIDs(path string, includeSelf bool) ([]uint64, error) {
	if !strings.HasPrefix(path, Separator) || len(path) == 1 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedPath, path)
	}

	segments := strings.Split(path[1:], Separator)
	ids := make([]uint64, 0, len(segments))
	for _, segment := range segments {
		id, err := strconv.ParseUint(segment, 10, 64)
		if err != nil || id == 0 || strconv.FormatUint(id, 10) != segment {
			return nil, fmt.Errorf("%w: %q", ErrMalformedPath, path)
		}
		ids = append(ids, id)
	}

	if !includeSelf {
		ids = ids[:len(ids)-1]
	}
	return ids, nil
}

// Validate reports whether path is well formed.
func Validate(path string) error {
	_, err := DecodeAncestorIDs(path, true)
	return err
}

// Level is the depth encoded by path; a root path has level 0.
func Level(path string) (int, error) {
	ids, err := DecodeAncestorIDs(path, true)
	if err != nil {
		return 0, err
	}
	return len(ids) - 1, nil
}

// SelfID returns the last id of path.
func SelfID(path string) (uint64, error) {
	ids, err := DecodeAncestorIDs(path, true)
	if err != nil {
		return 0, err
	}
	return ids[len(ids)-1], nil
}

// IsPrefixOf reports whether path equals candidateAncestorPath or lies
// beneath it. Matching stops on segment boundaries, so "/1/2" is not a
// prefix of "/1/23".
func IsPrefixOf(candidateAncestorPath, path string) bool {
	if candidateAncestorPath == "" {
		return false
	}
	if path == candidateAncestorPath {
		return true
	}
	return strings.HasPrefix(path, candidateAncestorPath+Separator)
}

// Rebase moves path from under oldPrefix to under newPrefix. The second
// return value is false when path is not inside oldPrefix.
func Rebase(path, oldPrefix, newPrefix string) (string, bool) {
	if !IsPrefixOf(oldPrefix, path) {
		return path, false
	}
	return newPrefix + path[len(oldPrefix):], true
}

// DescendantPattern is the LIKE pattern matching every strict descendant of
// path. Paths only contain digits and separators, so nothing needs escaping.
func DescendantPattern(path string) string {
	return path + Separator + "%"
}
