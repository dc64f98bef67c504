// Package loader verifies application packages and maps them into executable
// memory, modelling the resident application manager.
//
// # Overview
//
// A package moves through these states:
//   - Unloaded: nothing allocated
//   - HeaderValidated: the 128-byte header decoded and its magic matched
//   - ChecksumValidated: the code blob matched the header checksum
//   - Mapped: the code was copied into an executable region
//   - Running: control was transferred to region base + entry offset
//
// A corrupt package is rejected outright. Nothing is mapped unless both the
// header and the checksum are valid.
//
// # Basic Usage
//
//	table, err := loader.NewStandardTable(resolve)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l, err := loader.New(loader.DefaultAllocator(), table, executor)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	app, err := l.LoadFile(ctx, "hello.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = l.Start(ctx, app)
//
// # Service-Call Table
//
// Loaded code is not relocated. Every system function it needs is reached
// through the ServiceTable, which is passed as the single argument of the entry
// point. The table is frozen before the first load and shared read-only by all
// applications.
//
// # Executors
//
// Transferring control to native code is platform specific, so the Loader
// delegates it to an Executor. DryRun validates the call without running
// anything. Loaded code is trusted: a panic raised by the executor is reported
// as a FaultError, but there is no sandboxing.
//
// # Error Handling
//
//	app, err := l.Load(ctx, r)
//	switch {
//	case appk.IsFormatError(err):
//	    // malformed header, bad magic, truncation
//	case appk.IsIntegrityError(err):
//	    // checksum mismatch
//	case loader.IsResourceError(err):
//	    // no slot or memory; unload something and retry
//	}
package loader
