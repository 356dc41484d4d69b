package convert

import (
	"io"
	"sort"

	"github.com/reubano/csv2ofx/pkg/mappings"
	"github.com/reubano/csv2ofx/pkg/models"
	"github.com/reubano/csv2ofx/pkg/reader"
)

// group is one unit of statement emission: all records sharing an account
// name, or the legs of one split transaction sharing an id.
type group struct {
	key     string
	records []models.Record
}

// readChunk pulls up to chunkSize records from the source. An empty result
// means the source is exhausted.
func readChunk(src reader.RecordReader, chunkSize int) ([]models.Record, error) {
	chunk := make([]models.Record, 0, min(chunkSize, 1024))
	for len(chunk) < chunkSize {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		chunk = append(chunk, rec)
	}
	return chunk, nil
}

// groupKey is the mapping's id for split statements (legs of one double
// entry share an id) and the account otherwise (batching statement rows
// per account).
func (c *Converter) groupKey(rec models.Record) (string, error) {
	if c.mapping.IsSplit {
		return mappings.Resolve(c.mapping.ID, rec)
	}
	return mappings.Resolve(c.mapping.Account, rec)
}

// groupChunk sorts a chunk by grouping key and collects runs of equal keys.
// Sort-then-group rather than a map keeps iteration order deterministic for
// a given chunk. The sort is stable so members keep their source order.
func (c *Converter) groupChunk(chunk []models.Record) ([]group, error) {
	type keyed struct {
		key string
		rec models.Record
	}

	keyedRecs := make([]keyed, len(chunk))
	for i, rec := range chunk {
		key, err := c.groupKey(rec)
		if err != nil {
			return nil, err
		}
		keyedRecs[i] = keyed{key: key, rec: rec}
	}

	sort.SliceStable(keyedRecs, func(i, j int) bool {
		return keyedRecs[i].key < keyedRecs[j].key
	})

	var groups []group
	for _, kr := range keyedRecs {
		if n := len(groups); n > 0 && groups[n-1].key == kr.key {
			groups[n-1].records = append(groups[n-1].records, kr.rec)
			continue
		}
		groups = append(groups, group{key: kr.key, records: []models.Record{kr.rec}})
	}
	return groups, nil
}
