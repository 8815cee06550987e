// Index bucket keys.
//
// A bucket key is the 128-bit xxh3 hash of a value's canonical encoding
// (Value.appendKey). Values that compare Equal encode identically, so 1 and
// 1.0, or two objects with the same fields in a different order, share a
// bucket. 128 bits keeps accidental collisions out of reach for any
// realistic number of distinct values per field.
package shelf

import "github.com/zeebo/xxh3"

type bucketKey = xxh3.Uint128

func valueKey(v Value) bucketKey {
	return xxh3.Hash128(v.appendKey(make([]byte, 0, 32)))
}
