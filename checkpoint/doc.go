// Package checkpoint persists timer snapshots.
//
// Write encodes a timers.Snapshot with the live key and namespace
// serializers; Read rebuilds it through the restoring path, decoding the
// timers with serializers restored from the stored serializer snapshots.
//
// File Format:
//   - Magic bytes "TMR" (3 bytes) and format version (8 bytes)
//   - Key serializer snapshot: identifier, version, payload
//   - Namespace serializer snapshot: identifier, version, payload
//   - Event-time timers, then processing-time timers, each as a presence
//     flag followed, when present, by a count and the timers
//
// Timers are written in ascending (timestamp, key bytes, namespace bytes)
// order so a checkpoint of the same timers is always byte-identical.
//
// Encoded checkpoints are kept in a Store; see the memory and pebble
// subpackages.
package checkpoint
