// Package workflow wires processing nodes into a resumable state machine.
//
// A Graph is built once with a Builder (nodes, fixed edges, conditional edges
// and an entry point) and is safe for concurrent use. Each call to Invoke runs
// one turn: starting at the entry node, every node returns a partial
// domain.Update that is merged into the session state before routing picks
// the next node. The turn ends at End or at a node with no outgoing edge.
//
// Workflow adds per-session checkpointing on top of a Graph through
// session.Manager, so repeated turns with the same session id resume the
// same evolving state.
package workflow
