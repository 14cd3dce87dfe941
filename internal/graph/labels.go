package graph

import "regexp"

// Client-supplied node types and relationship types become structural
// identifiers in Cypher text. They cannot be passed as parameters, so they
// are validated here before interpolation; anything that fails validation
// falls back to a default.

// DefaultLabel is the node label used when a change carries no type or an
// unsafe one. The original type string still lands in the node's "type"
// property, so nothing is lost for clients.
const DefaultLabel = "Node"

// DefaultRelType is used when an edge change carries no usable type.
const DefaultRelType = "RELATES_TO"

var identRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// SafeLabel returns s when it is a safe Cypher identifier, DefaultLabel
// otherwise.
func SafeLabel(s string) string {
	if identRx.MatchString(s) {
		return s
	}
	return DefaultLabel
}

// SafeRelType returns s when it is a safe Cypher identifier, DefaultRelType
// otherwise.
func SafeRelType(s string) string {
	if identRx.MatchString(s) {
		return s
	}
	return DefaultRelType
}
