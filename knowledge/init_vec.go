//go:build sqlite_vec && cgo

package knowledge

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver so
	// the index can be inspected with vec0 tooling. The query path stores
	// embeddings as little-endian float32 blobs, the layout vec functions
	// consume directly.
	vec.Auto()
}
