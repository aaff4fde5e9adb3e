// Package chart loads statechart definitions and builds the nested graph the
// layout pipeline works on.
//
// # Definition Format
//
// A definition is a tree of states. Every state has a key that is unique
// among its siblings, an optional display label, entry and exit actions and
// a list of outgoing transitions:
//
//	id: door
//	initial: closed
//	states:
//	  - id: closed
//	    on:
//	      - event: OPEN
//	        target: opened
//	  - id: opened
//	    entry: [startTimer]
//	    on:
//	      - event: CLOSE
//	        target: closed
//	        guard: noObstacle
//	      - target: closed      # event-less, shown as "always"
//
// The same structure can be written as JSON or TOML ([[states]] and
// [[states.on]] tables). [DetectFormat] picks the decoder from the file
// extension.
//
// # Node IDs
//
// Graph node IDs are dotted paths from the root: the state "opened" above
// becomes "door.opened". Transition targets are resolved relative to the
// source state:
//
//   - "#door.closed": absolute path (the root key may be omitted: "#closed")
//   - ".inner": child of the source
//   - "closed": sibling of the source, then an absolute path
//   - "": the source itself (self-transition)
//
// Edge IDs are "<source>:<event>:<index>", where index counts the source's
// transitions in declaration order.
package chart
