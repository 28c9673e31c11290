package caretaking

import "github.com/google/uuid"

// ChainUser is the minimal view of a user the chain resolver needs: an
// identifier and the outgoing "is caretaking for" edges.
type ChainUser struct {
	ID            uuid.UUID
	CaretakingFor []ChainUser
}

// ResolveChain returns the set of user ids reachable by following
// caretaking edges from u, including u's own id. The traversal is an
// explicit worklist with a visited set: the input is expected to be a
// tree in practice, but a repeated id is treated as already resolved and
// never re-descended, so a malformed cyclic graph still terminates.
// A user with a zero id yields the empty set.
func ResolveChain(u ChainUser) map[uuid.UUID]bool {
	chain := make(map[uuid.UUID]bool)
	if u.ID == uuid.Nil {
		return chain
	}

	stack := []ChainUser{u}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.ID == uuid.Nil || chain[cur.ID] {
			continue
		}
		chain[cur.ID] = true
		stack = append(stack, cur.CaretakingFor...)
	}
	return chain
}

// Edges is the caretaking graph as an adjacency list keyed by user id:
// for each caretaker, the primary users they currently stand in for.
// Storage layers build it from the active-delegation table and avoid
// materializing nested user objects.
type Edges map[uuid.UUID][]uuid.UUID

// ResolveChainFromEdges is ResolveChain over the adjacency form, with
// the same visited-set and zero-id semantics.
func ResolveChainFromEdges(start uuid.UUID, edges Edges) map[uuid.UUID]bool {
	chain := make(map[uuid.UUID]bool)
	if start == uuid.Nil {
		return chain
	}

	stack := []uuid.UUID{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == uuid.Nil || chain[cur] {
			continue
		}
		chain[cur] = true
		stack = append(stack, edges[cur]...)
	}
	return chain
}

// ExclusionSet builds the set of users who must not be selectable as a new
// caretaker for u: everyone in u's delegation chain plus the requester of
// any pending incoming request naming u as the prospective caretaker
// (prevents crossed proposals).
func ExclusionSet(u ChainUser, pendingIncomingRequesters []uuid.UUID) map[uuid.UUID]bool {
	excluded := ResolveChain(u)
	for _, id := range pendingIncomingRequesters {
		if id != uuid.Nil {
			excluded[id] = true
		}
	}
	return excluded
}
