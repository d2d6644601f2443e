package store

import (
	"fmt"
	"strings"
)

// Document keys look like doc:decks/deck-1/cards#card-7. The '#' separator
// keeps a collection's prefix from matching its subcollections.
const (
	docKeyPrefix = "doc:"
	idSeparator  = "#"
)

// splitDocPath splits "decks/d1/cards/c1" into ("decks/d1/cards", "c1").
// A document path has an even number of non-empty segments.
func splitDocPath(docPath string) (collection, id string, err error) {
	segs, err := segments(docPath)
	if err != nil {
		return "", "", err
	}
	if len(segs)%2 != 0 {
		return "", "", ErrInvalidArgument.WithMessage(fmt.Sprintf("%q is not a document path", docPath))
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

// checkCollection validates a collection path (odd number of segments).
func checkCollection(collection string) error {
	segs, err := segments(collection)
	if err != nil {
		return err
	}
	if len(segs)%2 != 1 {
		return ErrInvalidArgument.WithMessage(fmt.Sprintf("%q is not a collection path", collection))
	}
	return nil
}

func segments(p string) ([]string, error) {
	if p == "" || strings.Contains(p, idSeparator) {
		return nil, ErrInvalidArgument.WithMessage(fmt.Sprintf("invalid path %q", p))
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if s == "" {
			return nil, ErrInvalidArgument.WithMessage(fmt.Sprintf("invalid path %q", p))
		}
	}
	return segs, nil
}

func docKey(collection, id string) []byte {
	return []byte(docKeyPrefix + collection + idSeparator + id)
}

func collectionPrefix(collection string) []byte {
	return []byte(docKeyPrefix + collection + idSeparator)
}

// JoinPath joins path segments with '/'.
func JoinPath(parts ...string) string {
	return strings.Join(parts, "/")
}
