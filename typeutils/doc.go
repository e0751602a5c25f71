// Package typeutils defines how keys and namespaces are turned into bytes and
// how the configuration of those encoders is captured across versions.
//
// A TypeSerializer encodes values of one type. Its TypeSerializerSnapshot is a
// small versioned record of the serializer's configuration: it is written
// next to the data in a checkpoint and, on restore, tells whether the data can
// still be read by the serializer compiled into the running program.
//
// Basic usage:
//
//	ser := typeutils.StringSerializer{}
//	snap := typeutils.SnapshotBackwardsCompatible[string](ser)
//
//	var buf bytes.Buffer
//	if err := typeutils.WriteVersionedSnapshot(&buf, snap); err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := typeutils.NewRegistry()
//	typeutils.RegisterBuiltins(registry)
//	restored, err := typeutils.ReadVersionedSnapshot[string](&buf, registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	switch restored.ResolveSchemaCompatibility(ser).Kind {
//	case typeutils.CompatibleAsIs:
//	    // keep using ser
//	case typeutils.Incompatible:
//	    // fail the restore
//	}
package typeutils
