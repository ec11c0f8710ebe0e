// Package cmd implements the command-line interface of dCRUD. The library is
// the product, the binary only carries development tooling:
//
//   - perf: in-process load test of a router of dispatchers against sqlite,
//     mysql or the in-memory mapper
//   - util: shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable DCRUD_<FLAG> (dashes
// become underscores), .env and .env.local are loaded on start.
//
// See dcrud -help for a list of all commands.
package cmd
