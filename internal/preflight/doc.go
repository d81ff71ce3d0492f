// Package preflight provides readiness checks for the filesystem paths and
// external binaries panelcast depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before touching any chapter. If a required
//     check fails, the run aborts before any encode starts.
//   - The CLI "panelcast deps" command prints individual results.
//
// A missing narration root is not a failure: the run continues with silent
// audio everywhere and the pipeline logs a single warning.
package preflight
