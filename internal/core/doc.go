// Package core imports parsed D0010 flow files into persistent storage.
//
// The package holds the import rules and nothing about transport: the CLI
// and the HTTP trigger both drive the same [Service].
//
// # Import Flow
//
// [Service.ImportFile] runs a fixed sequence per file: existence check,
// duplicate-filename check, parse, then one transaction that creates the
// [FlowFile] row and get-or-creates every [MeterPoint], [Meter] and [Reading].
// Readings are first-write-wins on (meter, register, date); the FlowFile's
// RecordCount counts only the readings this file created. A dry run stops
// after parsing and writes nothing.
//
// [Service.ImportBatch] walks a list of files strictly in order, recording
// each outcome and continuing past failures.
//
// # Storage
//
// Persistence goes through the [Store] and [Tx] interfaces. The filename
// check before parsing is a fast path only; the store's unique constraint on
// filenames is the real guard and surfaces as [DuplicateError].
//
// # Error Handling
//
// Failures are typed ([NotFoundError], [DuplicateError], [FileError],
// [StorageError], and the d0010 parse errors inside FileError). [MapError]
// turns any of them into a [UserMessage] with a stable code.
package core
