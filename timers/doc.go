// Package timers holds keyed timers and the snapshot taken of them when a
// checkpoint is written.
//
// A Timer fires at a timestamp for a key and a namespace. Timers are kept in a
// Heap while the timer service runs and are handed to a Snapshot as two Sets,
// one for event time and one for processing time, together with snapshots of
// the key and namespace serializers:
//
//	snap, err := timers.NewSnapshot[string, string](
//	    typeutils.StringSerializer{},
//	    typeutils.StringSerializer{},
//	    eventTimeHeap.Timers(),
//	    nil, // no processing-time timers
//	)
//
// On restore the checkpoint reader builds an empty Snapshot with
// NewRestoringSnapshot and fills it through its setters before the timer
// service reads it.
package timers
