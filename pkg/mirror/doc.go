/*
The mirror package implements a single mirror pass: copying every visible
top-level entry of a source directory into a destination directory, unless
an entry with the same name is already there.

A pass never modifies an existing destination entry. Whether the existing
entry is a file or a directory, and whatever its contents, its presence is
enough to skip the copy. This makes repeated passes over the same pair of
directories safe: the second pass copies nothing.

Entries whose names start with "." are hidden and ignored entirely. Hidden
files nested inside a copied directory are copied along with it.

The pass is sequential. An optional delay spaces out the copies, and the
delay is measured on an injected clock so that it can be simulated in tests
and interrupted through the context.
*/
package mirror
