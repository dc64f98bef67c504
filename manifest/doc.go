// Package manifest extracts application metadata from source code.
//
// Applications declare a manifest block in their main source file:
//
//	const app_manifest_t hello_app_manifest = {
//	    .name = "hello",
//	    .version = "1.0.0",
//	    .author = "Kraken Team",
//	    .entry = hello_app_entry,
//	};
//
// Resolve scans for the "_app_manifest" marker and pulls out the three string
// fields. Missing fields keep their defaults (directory name, "1.0.0",
// "<unknown>"). Metadata is advisory, so problems are reported as a non-fatal
// *ParseError alongside usable defaults.
package manifest
