// Package session implements the field-mapping session: the interaction in which a
// user opens a node of a blueprint graph, picks one of its fields and binds it to a
// field of a global node or of one of the node's predecessors.
//
// A Session moves through three states:
//
//	Idle ──OpenNode──▶ NodeOpen ──SelectField──▶ FieldSelecting
//	 ▲                  │  ▲                        │
//	 └────CloseNode─────┘  └──────Back / Commit─────┘
//
// The state is a tagged union (Idle, NodeOpen, FieldSelecting) so that a chosen
// target without a selected field cannot be expressed. Every transition is
// synchronous and safe to call in any state: a transition that is not valid for
// the current state, or that names an unknown node or field, is a no-op and
// reports Applied == false.
//
// A Session is not safe for concurrent use. Callers that share one across
// goroutines must serialize access (the session service does this per session).
package session
