package logstore

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/klauspost/compress/zstd"
)

// ExportedRecord is the JSON form of a record in an export.
type ExportedRecord struct {
	Slot      int    `json:"slot"`
	Timestamp uint32 `json:"timestamp"`
	Level     string `json:"level"`
	Module    string `json:"module"`
	Message   string `json:"message"`
}

// Export writes records to w as zstd compressed JSON lines.
func Export(w io.Writer, records []Record) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	je := json.NewEncoder(enc)
	for _, r := range records {
		if err := je.Encode(ExportedRecord{
			Slot:      r.Slot,
			Timestamp: r.Timestamp,
			Level:     r.Level.String(),
			Module:    r.Module,
			Message:   r.Message,
		}); err != nil {
			enc.Close()
			return err
		}
	}
	return enc.Close()
}

// ReadExport reads the records written by Export.
func ReadExport(r io.Reader) ([]ExportedRecord, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	var records []ExportedRecord
	jd := json.NewDecoder(dec)
	for {
		var rec ExportedRecord
		if err := jd.Decode(&rec); errors.Is(err, io.EOF) {
			return records, nil
		} else if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}
