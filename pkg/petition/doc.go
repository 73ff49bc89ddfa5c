// Package petition orders on-chain petition records for display.
//
// Records arrive from an external provider as snapshots. They are normalized
// once at the boundary (Normalize), optionally narrowed (Filter), then ordered
// (Rank) against a caller-supplied reference instant.
//
// Modes
//   - trending: boosted records first, boosted ones by boost priority, the
//     rest by signature count. This is the default landing view.
//   - newest: creation time, most recent first; boost is ignored.
//   - featured: boosted records first by boost priority, the rest by creation
//     time. Used for the dashboard card.
//
// A record is boosted iff its boost end time is strictly after the reference
// instant. Boost priority is only ever compared between two boosted records.
// All orderings are stable: records that compare equal keep their input order.
package petition
