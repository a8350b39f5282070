package cluster

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// fingerprintOf folds the (host, port) pairs of all replicas, shards in
// declaration order and replicas in declaration order within each shard,
// into a single order-sensitive hash. The result is reproducible across
// process restarts and independent constructions from equivalent
// configuration.
func fingerprintOf(groups [][]Address) string {
	digest := xxhash.New()

	var buf [2]byte

	for _, group := range groups {
		for _, addr := range group {
			_, _ = digest.WriteString(addr.Host)
			_, _ = digest.Write([]byte{0})

			binary.BigEndian.PutUint16(buf[:], uint16(addr.Port))
			_, _ = digest.Write(buf[:])
		}
	}

	return strconv.FormatUint(digest.Sum64(), 16)
}
