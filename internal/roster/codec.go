package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Required input columns, in export order.
var columns = []string{"Process_Name", "Potential", "Communication", "Vacancy"}

// ReadTable parses a four-column process CSV. Every row is validated: the
// categories must belong to their closed sets and Vacancy must be a
// non-negative integer. The first invalid row aborts the load.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	var missing []string
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	table := &Table{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		line++

		row := make(map[string]string, len(columns))
		for _, col := range columns {
			row[col] = strings.TrimSpace(record[index[col]])
		}

		process, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		table.Items = append(table.Items, process)
	}

	return table, nil
}

// LoadTable reads a process table from a CSV file on disk.
func LoadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	table, err := ReadTable(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return table, nil
}

func decodeRow(row map[string]string) (*Process, error) {
	var process Process

	// The weakly-typed decode turns an empty cell into zero; a blank vacancy
	// is missing data, not a zero-vacancy process.
	if row["Vacancy"] == "" {
		return nil, fmt.Errorf("vacancy must be numeric, got an empty value")
	}

	cfg := &mapstructure.DecoderConfig{
		Result:           &process,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(row); err != nil {
		return nil, fmt.Errorf("vacancy must be numeric: %w", err)
	}

	if process.Name == "" {
		return nil, fmt.Errorf("process name must not be empty")
	}

	potential, err := ParsePotential(string(process.Potential))
	if err != nil {
		return nil, err
	}
	process.Potential = potential

	communication, err := ParseCommunication(string(process.Communication))
	if err != nil {
		return nil, err
	}
	process.Communication = communication

	if process.Vacancy < 0 {
		return nil, fmt.Errorf("vacancy must not be negative, got %d", process.Vacancy)
	}

	return &process, nil
}

// WriteTable emits the table in the same four-column shape ReadTable accepts,
// so an export round-trips.
func WriteTable(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(columns); err != nil {
		return err
	}

	for _, p := range t.Items {
		record := []string{p.Name, string(p.Potential), string(p.Communication), strconv.Itoa(p.Vacancy)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveTable writes the table to a CSV file, replacing any existing content.
func SaveTable(path string, t *Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteTable(file, t); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
