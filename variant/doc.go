// Package variant resolves adjacently-tagged notification payloads into a
// closed payload tree.
//
// The engine encodes details as an adjacently tagged union: a "type"
// discriminator next to a "details" value, where details may itself be
// another type/details pair plus sibling fields, to arbitrary depth:
//
//	{
//	  "type": "TaskChainStart",
//	  "details": {
//	    "taskchain": "Fight",
//	    "type": "SubTaskStart",
//	    "details": { ... }
//	  }
//	}
//
// The Catalog records, per discriminator, whether details are terminal
// fields (leaf kind) or a further nested envelope (container kind), and the
// field schemas for each. The Resolver walks the nesting iteratively and
// produces a Payload: a chain of Nested hops ending in a Leaf.
//
// Decoding is deliberately forgiving. Uncatalogued tags become Unknown
// leaves carrying the raw fields verbatim; when the runtime shape of a
// payload disagrees with its registration, the runtime shape wins and the
// value is exposed as raw fields. A message is never rejected for being
// ahead of, or behind, the catalog.
//
// Event wraps the resolved tree with the envelope identity and offers the
// discriminator path, sibling lookups, and lazy typed views over the
// built-in leaf kinds.
package variant
