// Package allocation models how a user splits a personal portfolio between
// stocks and bonds.
//
// The core functionalities include:
//   - Portfolio: the per-user record, a mapping of stock symbols and bond
//     identifiers to an allocation in percent, and its derived views (per
//     asset class totals, validity of the total).
//   - Model: pure merge (ApplyUpdate) and removal (ApplyRemoval) operations.
//     The rule that the total allocation should be close to 100% is soft: it
//     produces an advisory message (AllocationWarning), never a rejection.
//   - Store: durable persistence of one JSON record per user in a directory.
//     Missing or corrupted records load as the empty portfolio.
//
// This package is the source of truth for the `pfm` command-line tool and its
// MCP server, both built on top of it.
package allocation
