// Package record defines the on-disk identity of a captured request.
//
// Every captured request is stored in one file whose name carries the
// capture time, the HTTP method, the request path and the storage kind:
//
//	<yyyymmdd>-<hhmmss>-<METHOD>[-<path>].<ext>
//
// Slashes in the path are written as "|" so the name stays a single path
// component. An escaped URL path never contains a literal "|", which makes
// the substitution reversible. Names sort lexically in capture order at
// second resolution.
//
// Parse is the inverse of Record.Name: for every valid record r,
// Parse(r.Name()) describes the same record.
package record
