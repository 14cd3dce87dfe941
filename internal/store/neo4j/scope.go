package neo4j

import (
	"encoding/json"
	"fmt"

	"github.com/lorekeeper/lorekeeper/internal/store"
)

// The ownership resolver. A node is visible to a user under a scope iff
//
//	(u:User)-[:OWNS]->(c:Campaign {id: scope})<-[:PART_OF]-(n)   campaign scope
//	(u:User)-[:PART_OF]->(n)                                      global scope
//
// Writes authorize through the identical path: a statement whose match path
// does not resolve simply binds nothing and the write is a no-op. These
// builders are the single place the path is spelled out.

// matchByID returns a MATCH clause binding `n` to the node with id $id that
// is visible under the scope. label may be empty for any-label matches.
func matchByID(sc store.Scope, label string) string {
	n := "n"
	if label != "" {
		n = "n:" + label
	}
	if sc.IsGlobal() {
		return fmt.Sprintf("MATCH (u:User {id: $uid})-[:PART_OF]->(%s {id: $id})", n)
	}
	return fmt.Sprintf("MATCH (u:User {id: $uid})-[:OWNS]->(:Campaign {id: $scope})<-[:PART_OF]-(%s {id: $id})", n)
}

// matchAll returns a MATCH clause binding `n` to every node visible under
// the scope.
func matchAll(sc store.Scope, label string) string {
	n := "n"
	if label != "" {
		n = "n:" + label
	}
	if sc.IsGlobal() {
		return fmt.Sprintf("MATCH (u:User {id: $uid})-[:PART_OF]->(%s)", n)
	}
	return fmt.Sprintf("MATCH (u:User {id: $uid})-[:OWNS]->(:Campaign {id: $scope})<-[:PART_OF]-(%s)", n)
}

// scopeParams returns the base parameter map for a scoped statement. The
// $scope key is present only for campaign scopes; statements that OPTIONAL
// MATCH the campaign pass a nil $scope for global instead.
func scopeParams(sc store.Scope) map[string]interface{} {
	p := map[string]interface{}{"uid": sc.UserID}
	if !sc.IsGlobal() {
		p["scope"] = sc.ScopeID
	}
	return p
}

// campaignOrNil yields the $scope value for statements that OPTIONAL MATCH
// the campaign: nil selects no campaign and leaves only the user link.
func campaignOrNil(sc store.Scope) interface{} {
	if sc.IsGlobal() {
		return nil
	}
	return sc.ScopeID
}

// attachOwnershipClause links a freshly merged node to the resolved campaign
// (when $scope names one owned by the user) and unconditionally to the user.
// The dual edge keeps the node reachable under both scoped and global pulls.
const attachOwnershipClause = `
WITH n
MATCH (u:User {id: $uid})
OPTIONAL MATCH (u)-[:OWNS]->(c:Campaign {id: $scope})
FOREACH (_ IN CASE WHEN c IS NULL THEN [] ELSE [1] END |
  MERGE (n)-[:PART_OF]->(c)
)
MERGE (u)-[:PART_OF]->(n)`

// sanitizeProps prepares a client payload for storage: the id never lives in
// the payload (it is the merge key), createdAt is handled by the caller for
// first-write-wins, and map-typed sub-attributes are serialized to opaque
// JSON strings because the store only holds primitive properties.
func sanitizeProps(payload map[string]interface{}) map[string]interface{} {
	props := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if k == "id" || k == "createdAt" {
			continue
		}
		if m, ok := v.(map[string]interface{}); ok {
			if len(m) == 0 {
				continue
			}
			b, err := json.Marshal(m)
			if err != nil {
				continue
			}
			props[k] = string(b)
			continue
		}
		props[k] = v
	}
	return props
}

// createdAtFor resolves the createdAt value for a fresh node: the client's
// value when supplied, the change timestamp otherwise.
func createdAtFor(payload map[string]interface{}, ts int64) interface{} {
	if v, ok := payload["createdAt"]; ok {
		return v
	}
	return ts
}
