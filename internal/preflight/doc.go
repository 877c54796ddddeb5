// Package preflight provides readiness checks for the filesystem paths and
// external binaries the pipelines depend on.
//
// These checks run in two contexts:
//   - The migrate and transcribe commands call InspectSourceRoot or RunAll
//     before starting a batch, so a doomed run fails up front with a precise
//     reason (permission denied is not the same as not found).
//   - The CLI "status" command renders RunAll results as service health.
package preflight
