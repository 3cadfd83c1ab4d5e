// Package watcher re-imports a graph document whenever its file changes on
// disk.
package watcher
