package resource

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// DefaultNamespace is assumed when an identifier has no "namespace:" prefix.
const DefaultNamespace = "minecraft"

// ErrInvalidIdentifier is returned for identifiers with characters outside
// the allowed set.
var ErrInvalidIdentifier = errors.New("invalid resource identifier")

// Identifier names a resource as namespace plus slash-separated path.
type Identifier struct {
	Namespace string
	Path      string
}

// ParseIdentifier parses "namespace:path" or a bare path in the default
// namespace. Namespaces may use [a-z0-9_.-]; paths may also use "/".
func ParseIdentifier(s string) (Identifier, error) {
	ns, p := DefaultNamespace, s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		ns, p = s[:i], s[i+1:]
		if ns == "" {
			ns = DefaultNamespace
		}
	}
	if !validNamespace(ns) || !validPath(p) {
		return Identifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return Identifier{Namespace: ns, Path: p}, nil
}

// MustParse is ParseIdentifier for literals known to be valid.
func MustParse(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id Identifier) String() string {
	return id.Namespace + ":" + id.Path
}

// MarshalText encodes the identifier as "namespace:path".
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses "namespace:path".
func (id *Identifier) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentifier(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// TextureIdentifier maps a short texture name such as "minecraft:block/stone"
// to the file holding it, "minecraft:textures/block/stone.png".
func TextureIdentifier(id Identifier) Identifier {
	return Identifier{Namespace: id.Namespace, Path: "textures/" + id.Path + ".png"}
}

// FilePath is where the resource lives below a resource root.
func (id Identifier) FilePath() string {
	return path.Join(id.Namespace, id.Path)
}

func validNamespace(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !allowed(r) {
			return false
		}
	}
	return true
}

func validPath(s string) bool {
	if s == "" || strings.HasPrefix(s, "/") || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if r != '/' && !allowed(r) {
			return false
		}
	}
	return true
}

func allowed(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '.' || r == '-'
}
