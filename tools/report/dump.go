package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/brensch/squadsnek/scraper/store"
)

// dumpFile writes every row of one archive file as a JSON line. The schema
// tag in the file metadata picks the row type.
func dumpFile(path string, out io.Writer) error {
	schema, err := store.FileSchema(path)
	if err != nil {
		return err
	}
	switch schema {
	case store.ArchiveSchema:
		return dumpRows[store.ArchiveTurnRow](path, out)
	case store.ReplaySchema:
		return dumpRows[store.ReplayRow](path, out)
	}
	return fmt.Errorf("%s: unknown schema %q", path, schema)
}

func dumpRows[T any](path string, out io.Writer) error {
	rows, err := store.ReadFile[T](path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
