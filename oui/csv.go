package oui

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

// Table is a prefix to vendor map loaded from the IEEE CSV export
// (Registry,Assignment,Organization Name,Organization Address). Prefixes
// missing from the table fall back to the embedded list.
type Table struct {
	vendors map[string]string
}

func LoadCSVFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return LoadCSV(f)
}

func LoadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	vendors := map[string]string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return Table{}, fmt.Errorf("invalid OUI file: %w", err)
		}

		if len(record) < 3 {
			continue
		}
		prefix := strings.ToLower(strings.TrimSpace(record[1]))
		if !isPrefix(prefix) {
			// header row or MA-M/MA-S assignments
			continue
		}
		vendors[prefix] = strings.TrimSpace(record[2])
	}

	if len(vendors) == 0 {
		return Table{}, errors.New("invalid OUI file: no assignments found")
	}
	return Table{vendors: vendors}, nil
}

func (t Table) Vendor(mac net.HardwareAddr) string {
	if len(mac) < 3 {
		return Unknown
	}
	if vendor, ok := t.vendors[hex.EncodeToString(mac[:3])]; ok && vendor != "" {
		return vendor
	}
	return MacToVendor(mac)
}

func (t Table) Len() int {
	return len(t.vendors)
}

func isPrefix(s string) bool {
	if len(s) != 6 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
