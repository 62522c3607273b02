package shuffle

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/shufflepack/errs"
)

// HashPartitioner maps precomputed per-row hash values onto shuffle
// partitions. Hashes arrive as signed 32-bit values, so the mapping wraps
// negative remainders back into [0, numPartitions).
type HashPartitioner struct {
	numPartitions int32
}

// NewHashPartitioner creates a partitioner over numPartitions partitions.
func NewHashPartitioner(numPartitions int32) (*HashPartitioner, error) {
	if numPartitions <= 0 {
		return nil, fmt.Errorf("%w: partition count must be positive, got %d",
			errs.ErrInvalidArgument, numPartitions)
	}

	return &HashPartitioner{numPartitions: numPartitions}, nil
}

// NumPartitions returns the partition count.
func (hp *HashPartitioner) NumPartitions() int32 {
	return hp.numPartitions
}

// ComputePID maps one signed hash to its partition. The remainder is
// wrapped so the result is always in [0, numPartitions), even for negative
// hashes.
func (hp *HashPartitioner) ComputePID(hash int32) int32 {
	pid := hash % hp.numPartitions
	if pid < 0 {
		pid += hp.numPartitions
	}

	return pid
}

// Compute fills row2Partition with the partition of every row's hash. The
// two slices must have equal length.
func (hp *HashPartitioner) Compute(pidArr []int32, row2Partition []uint32) error {
	if len(pidArr) != len(row2Partition) {
		return fmt.Errorf("%w: %d hashes for %d partition slots",
			errs.ErrInvalidArgument, len(pidArr), len(row2Partition))
	}

	for i, hash := range pidArr {
		row2Partition[i] = uint32(hp.ComputePID(hash))
	}

	return nil
}

// ComputeForVector groups rows by partition, appending a packed row handle
// (vectorIndex in the high 32 bits, row index in the low 32) to
// rowIndexes[pid] for every row. Handles later sort into
// vector-then-row order, which keeps spill reads sequential.
func (hp *HashPartitioner) ComputeForVector(pidArr []int32, vectorIndex int32, rowIndexes map[int32][]int64) error {
	if vectorIndex < 0 {
		return fmt.Errorf("%w: negative vector index %d", errs.ErrInvalidArgument, vectorIndex)
	}
	if rowIndexes == nil {
		return fmt.Errorf("%w: nil row index map", errs.ErrInvalidArgument)
	}

	index := int64(vectorIndex) << 32
	for i, hash := range pidArr {
		pid := hp.ComputePID(hash)
		rowIndexes[pid] = append(rowIndexes[pid], index|int64(i)&0xFFFFFFFF)
	}

	return nil
}

// PartitionIDForKey hashes a string key with xxhash and maps it into
// [0, numPartitions). A non-positive partition count yields 0.
func PartitionIDForKey(key string, numPartitions int32) int32 {
	if numPartitions <= 0 {
		return 0
	}

	return int32(xxhash.Sum64String(key) % uint64(numPartitions))
}
