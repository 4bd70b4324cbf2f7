package model

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	KindProfile    = "Profile"
	KindConference = "Conference"
	KindSession    = "Session"
	KindAccount    = "Account"
)

var ErrInvalidKey = errors.New("invalid key")

// Key identifies an entity. A key with a parent belongs to the parent's
// entity group; ancestor queries match every key below a given ancestor.
type Key struct {
	Kind     string
	IntID    int64
	StringID string
	Parent   *Key
}

// Entity is implemented by every stored type so stores can hand the key
// back after decoding.
type Entity interface {
	SetKey(k *Key)
}

func NameKey(kind, name string, parent *Key) *Key {
	return &Key{Kind: kind, StringID: name, Parent: parent}
}

func IDKey(kind string, id int64, parent *Key) *Key {
	return &Key{Kind: kind, IntID: id, Parent: parent}
}

// Incomplete reports whether the key still needs an allocated id.
func (k *Key) Incomplete() bool {
	return k.StringID == "" && k.IntID == 0
}

func (k *Key) Equal(o *Key) bool {
	for k != nil && o != nil {
		if k.Kind != o.Kind || k.IntID != o.IntID || k.StringID != o.StringID {
			return false
		}
		k, o = k.Parent, o.Parent
	}
	return k == nil && o == nil
}

// HasAncestor reports whether a is k itself or one of its parents.
func (k *Key) HasAncestor(a *Key) bool {
	for cur := k; cur != nil; cur = cur.Parent {
		if cur.Equal(a) {
			return true
		}
	}
	return false
}

// Ancestors returns the paths of k and all of its parents, root last.
func (k *Key) Ancestors() []string {
	var out []string
	for cur := k; cur != nil; cur = cur.Parent {
		out = append(out, cur.Path())
	}
	return out
}

func (k *Key) element() string {
	if k.StringID != "" {
		return k.Kind + ",s" + url.PathEscape(k.StringID)
	}
	return k.Kind + ",i" + strconv.FormatInt(k.IntID, 10)
}

// Path is the canonical, human readable form of the key, e.g.
// "Profile,salice/Conference,i12". Two keys are equal iff their paths are.
func (k *Key) Path() string {
	if k == nil {
		return ""
	}
	if k.Parent == nil {
		return k.element()
	}
	return k.Parent.Path() + "/" + k.element()
}

func (k *Key) String() string { return k.Path() }

// Encode returns the websafe form of the key.
func (k *Key) Encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(k.Path()))
}

// DecodeKey parses a websafe key produced by Encode.
func DecodeKey(websafe string) (*Key, error) {
	if websafe == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	raw, err := base64.RawURLEncoding.DecodeString(websafe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return ParsePath(string(raw))
}

// ParsePath is the inverse of Key.Path.
func ParsePath(path string) (*Key, error) {
	var key *Key
	for _, elem := range strings.Split(path, "/") {
		kind, id, ok := strings.Cut(elem, ",")
		if !ok || kind == "" || len(id) < 2 {
			return nil, fmt.Errorf("%w: malformed element %q", ErrInvalidKey, elem)
		}
		k := &Key{Kind: kind, Parent: key}
		switch id[0] {
		case 's':
			name, err := url.PathUnescape(id[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			k.StringID = name
		case 'i':
			n, err := strconv.ParseInt(id[1:], 10, 64)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: bad id in %q", ErrInvalidKey, elem)
			}
			k.IntID = n
		default:
			return nil, fmt.Errorf("%w: malformed element %q", ErrInvalidKey, elem)
		}
		key = k
	}
	return key, nil
}
