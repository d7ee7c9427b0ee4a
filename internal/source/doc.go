// Package source fetches raw listing data from the supported marketplaces.
//
// Each site has one Adapter behind a shared Client that handles request
// pacing, identity rotation, and the per-fetch deadline. The adapter set is
// closed: a product whose site has no adapter is a configuration error, not
// a fetch failure.
//
// Adapters never retry. A failed fetch surfaces as a *FetchError classified
// by Kind; the caller decides what a failure means for its run.
package source
