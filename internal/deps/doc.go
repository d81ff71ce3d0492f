// Package deps locates the external binaries panelcast shells out to and
// reports their availability and versions.
package deps
