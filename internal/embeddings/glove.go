package embeddings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nvandessel/headwinds/internal/vocab"
)

// maxLineBytes bounds a single GloVe line; 300-d vectors are well under 8KB.
const maxLineBytes = 1024 * 1024

// LoadStats reports what a load pass saw.
type LoadStats struct {
	Lines     int // non-empty lines read
	Malformed int // lines skipped for a wrong field count or bad number
	Kept      int // vectors kept for configured words
}

// LoadGloVe reads whitespace-separated "word v1 ... vD" lines from r and
// builds a Table holding only the words of want. Lines with the wrong field
// count or an unparsable component are skipped. The first vector seen for a
// word wins.
func LoadGloVe(r io.Reader, dim int, want *vocab.Vocabulary) (*Table, LoadStats, error) {
	var stats LoadStats
	vectors := make(map[string][]float64, want.Len())

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		fields := strings.Fields(line)
		if len(fields) != dim+1 {
			stats.Malformed++
			continue
		}

		word := vocab.Normalize(fields[0])
		if !want.Contains(word) {
			continue
		}
		if _, seen := vectors[word]; seen {
			continue
		}

		vec, err := parseComponents(fields[1:])
		if err != nil {
			stats.Malformed++
			continue
		}
		vectors[word] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading embeddings: %w", err)
	}

	stats.Kept = len(vectors)
	t, err := NewTable(dim, vectors, want)
	if err != nil {
		return nil, stats, err
	}
	return t, stats, nil
}

// LoadFile opens path and calls LoadGloVe.
func LoadFile(path string, dim int, want *vocab.Vocabulary) (*Table, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("opening embeddings file: %w", err)
	}
	defer f.Close()

	return LoadGloVe(f, dim, want)
}

func parseComponents(fields []string) ([]float64, error) {
	vec := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		vec[i] = x
	}
	return vec, nil
}
