package syncer

import "github.com/phrazzld/tasksync/internal/domain"

// Partition splits entries into consecutive batches of at most size entries,
// preserving order. It yields ceil(len(entries)/size) batches; every batch but
// the last holds exactly size entries. A size below 1 is treated as 1.
func Partition(entries []*domain.OutboxEntry, size int) [][]*domain.OutboxEntry {
	if size < 1 {
		size = 1
	}
	if len(entries) == 0 {
		return nil
	}

	batches := make([][]*domain.OutboxEntry, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		batches = append(batches, entries[start:end:end])
	}
	return batches
}
