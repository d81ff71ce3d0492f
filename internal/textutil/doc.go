// Package textutil provides small text helpers shared by discovery and
// reporting: natural numeric ordering of chapter and page names, and display
// labels for chapter directories.
package textutil
