// Package chunk provides fixed-size splitting and reassembly for blob
// payloads that exceed the backing store's single-document limit.
package chunk

import "fmt"

// Count returns the number of chunks a payload of length bytes occupies
// at the given chunk size. An empty payload occupies zero chunks.
func Count(length, size int) int {
	if length <= 0 || size <= 0 {
		return 0
	}
	return (length + size - 1) / size
}

// Split slices data into chunks of at most size bytes; the last chunk may
// be shorter. The returned slices alias data, they are not copies.
func Split(data []byte, size int) [][]byte {
	n := Count(len(data), size)
	chunks := make([][]byte, 0, n)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}

// Join reassembles chunks into the original payload, enforcing the
// integrity invariant: the chunk count and resulting byte length must both
// match what was recorded when the blob was stored.
func Join(chunks [][]byte, wantChunks, wantLength int) ([]byte, error) {
	if len(chunks) != wantChunks {
		return nil, fmt.Errorf("chunk count mismatch: have %d, want %d", len(chunks), wantChunks)
	}
	out := make([]byte, 0, wantLength)
	for _, c := range chunks {
		out = append(out, c...)
	}
	if len(out) != wantLength {
		return nil, fmt.Errorf("byte length mismatch: have %d, want %d", len(out), wantLength)
	}
	return out, nil
}
