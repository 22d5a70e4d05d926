package jsonpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter separates keys in a dotted path.
const Delimiter = "."

// ErrPathNotFound is matched by every error returned from path navigation.
// It means the document's shape differs from the one the caller expected.
var ErrPathNotFound = errors.New("path not found")

// PathError reports where a dotted path stopped matching a document.
type PathError struct {
	Path string // the full path requested
	Key  string // the key or index that could not be followed
	At   Kind   // the kind of node Key was applied to
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %q at key %q (%s node)", ErrPathNotFound, e.Path, e.Key, e.At)
}

func (e *PathError) Unwrap() error { return ErrPathNotFound }

// Resolve follows path through n. On an object the key is a member name; on
// an array it is a zero-based index. Anything else, including a missing key,
// an out-of-range or non-numeric index, or a scalar in the middle of the
// path, fails with a *PathError.
func Resolve(n Node, path string) (Node, error) {
	cur := n
	if path == "" {
		return cur, nil
	}

	for _, key := range strings.Split(path, Delimiter) {
		switch cur.kind {
		case Object:
			next, exists := cur.object[key]
			if !exists {
				return Node{}, &PathError{Path: path, Key: key, At: cur.kind}
			}
			cur = next
		case Array:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(cur.array) {
				return Node{}, &PathError{Path: path, Key: key, At: cur.kind}
			}
			cur = cur.array[idx]
		default:
			return Node{}, &PathError{Path: path, Key: key, At: cur.kind}
		}
	}

	return cur, nil
}

// String resolves path and requires a scalar at its end.
func String(n Node, path string) (string, error) {
	v, err := Resolve(n, path)
	if err != nil {
		return "", err
	}

	s, ok := v.Text()
	if !ok {
		return "", &PathError{Path: path, Key: lastKey(path), At: v.kind}
	}

	return s, nil
}

// Items resolves path and requires an array at its end.
func Items(n Node, path string) ([]Node, error) {
	v, err := Resolve(n, path)
	if err != nil {
		return nil, err
	}

	if v.kind != Array {
		return nil, &PathError{Path: path, Key: lastKey(path), At: v.kind}
	}

	return v.array, nil
}

func lastKey(path string) string {
	if i := strings.LastIndex(path, Delimiter); i >= 0 {
		return path[i+1:]
	}
	return path
}
