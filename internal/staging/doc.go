// Package staging finds and removes work left behind by interrupted runs:
// temp_<chapter> and finalize_<run> directories under the work directory, and
// partial outputs that were never committed.
package staging
