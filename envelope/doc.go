// Package envelope decodes the outer notification structure emitted by the
// engine callback.
//
// The stabilized wire shape is:
//
//	{
//	  "id": "<uuid>",
//	  "timestamp": "<RFC 3339 with offset>",
//	  "msg": "<short human summary>",
//	  "type": "<discriminator>",
//	  "details": { ... }
//	}
//
// Decode validates that shape. DecodeLegacy accepts the older form where the
// kind arrived as a bare numeric code next to an untyped details blob, and
// normalizes it into the same Envelope via the fixed legacy table. The
// details value is never interpreted here; it is handed raw to the variant
// resolver.
package envelope
