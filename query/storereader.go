package query

import (
	"context"

	"tradeflow/storage"
)

// StoreReader adapts a local storage.Database (the box mirror) to the
// BoxReader interface.
type StoreReader struct {
	db storage.Database
}

func NewStoreReader(db storage.Database) *StoreReader {
	return &StoreReader{db: db}
}

func (r *StoreReader) ListBoxes(ctx context.Context, prefix []byte) ([]Box, error) {
	var out []Box
	err := r.db.Iterate(prefix, func(key, value []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := append([]byte(nil), key...)
		val := append([]byte(nil), value...)
		out = append(out, Box{Name: name, Value: val})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
