package bridge

import (
	"strings"

	"github.com/transilluminate/crdt-data-types/pkg/crdt"
)

// kindTable lists every normalized tag alias that resolves to a kind.
// normalizeKind lowercases the input and strips underscores and
// hyphens before the lookup, so "GCounter", "gcounter", "g_counter",
// and "G-COUNTER" all resolve to the same entry.
var kindTable = map[string]crdt.Kind{
	"gcounter":    crdt.KindGCounter,
	"pncounter":   crdt.KindPNCounter,
	"gset":        crdt.KindGSet,
	"orset":       crdt.KindORSet,
	"lwwset":      crdt.KindLWWSet,
	"lwwregister": crdt.KindLWWRegister,
	"fwwregister": crdt.KindFWWRegister,
	"mvregister":  crdt.KindMVRegister,
	"lwwmap":      crdt.KindLWWMap,
	"ormap":       crdt.KindORMap,
}

// normalizeKind resolves a user-supplied type tag to a crdt.Kind,
// accepting PascalCase, lower case, snake_case, kebab-case, and any
// mixed case.
func normalizeKind(tag string) (crdt.Kind, error) {
	normalized := strings.ToLower(tag)
	normalized = strings.ReplaceAll(normalized, "_", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	kind, ok := kindTable[normalized]
	if !ok {
		return "", &UnknownType{Tag: tag}
	}
	return kind, nil
}
