// Package releases orchestrates a release build across one or more checkouts.
//
// VersionResolver names the revision a checkout is at. Reconciler moves a clean
// checkout to a required version. MatrixRunner drives the external build step
// once per configuration and packages each configuration's artifacts into an
// archive. Aggregator runs all of that per checkout, relocates the archives into
// the executables directory and writes the release manifest.
package releases
