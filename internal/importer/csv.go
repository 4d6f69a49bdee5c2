package importer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/Napageneral/sigmd/internal/fieldmap"
	"github.com/Napageneral/sigmd/internal/logging"
)

// forEachRow opens the named CSV file in folder, maps its header against the
// recognized fields and calls fn for every data row. The file is scoped to
// this function and closed on return.
//
// A missing or unreadable file (or header) is returned as an error; the
// caller decides whether that is fatal beyond its own stage. A malformed data
// row is logged and skipped, it never stops the iteration.
func forEachRow(folder, name string, recognized []string, log logging.Logger, fn func(fm *fieldmap.Map, row []string)) error {
	path := filepath.Join(folder, name)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return err
	}
	fm := fieldmap.Build(header, recognized)

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			log.Warn("skipping malformed row", "file", name, "error", err)
			continue
		}
		fn(fm, row)
	}
}
