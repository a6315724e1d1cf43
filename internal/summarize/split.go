package summarize

import (
	"fmt"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// Split partitions items into consecutive chunks of size, the last one
// possibly shorter. Concatenating the chunks gives back items.
func Split[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidBatchSize.Message, fmt.Errorf("got %d", size))
	}
	if len(items) == 0 {
		return nil, nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks, nil
}
