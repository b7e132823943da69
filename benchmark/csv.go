package benchmark

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

// CSVHeader is the column layout of the research data file
var CSVHeader = []string{
	"Timestamp", "Protocol", "MessageID", "MessageType", "PayloadSize",
	"TotalSize", "TransportOverhead", "SessionOverhead",
	"PresentationOverhead", "ApplicationOverhead", "EfficiencyPercent", "OverheadPercent",
}

const csvOpenFlag = os.O_CREATE | os.O_APPEND | os.O_WRONLY

// ErrMalformedRow is returned by ReadCSV for rows it cannot parse
var ErrMalformedRow = errors.New("malformed csv row")

// Row formats the record as a CSV data row
func (m Metrics) Row() []string {
	return []string{
		strconv.FormatUint(m.Timestamp, 10),
		Protocol,
		strconv.FormatUint(uint64(m.MessageID), 10),
		string(m.MessageType),
		strconv.Itoa(m.PayloadSize),
		strconv.Itoa(m.TotalSize),
		strconv.Itoa(m.TransportOverhead),
		strconv.Itoa(m.SessionOverhead),
		strconv.Itoa(m.PresentationOverhead),
		strconv.Itoa(m.ApplicationOverhead),
		strconv.FormatFloat(float64(m.EfficiencyPercent), 'f', 1, 32),
		strconv.FormatFloat(float64(m.OverheadPercent), 'f', 1, 32),
	}
}

// AppendCSV appends the record to filename, writing the header first when
// the file is new. The file is opened, flushed and closed on every call.
func (m Metrics) AppendCSV(filename string) error {
	// Serialise appends from other processes sharing the same file.
	// Locking creates the file, so a new file shows up as empty below.
	lock := flock.New(filename, flock.SetFlag(csvOpenFlag), flock.SetPermissions(0o644))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", filename, err)
	}
	defer lock.Unlock()

	info, err := lock.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	writeHeader := info.Size() == 0

	file, err := os.OpenFile(filename, csvOpenFlag, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}

	w := csv.NewWriter(file)
	if writeHeader {
		if err := w.Write(CSVHeader); err != nil {
			file.Close()
			return fmt.Errorf("failed to write header to %s: %w", filename, err)
		}
	}
	if err := w.Write(m.Row()); err != nil {
		file.Close()
		return fmt.Errorf("failed to write row to %s: %w", filename, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush %s: %w", filename, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}

	log.Debug().
		Int("total_bytes", m.TotalSize).
		Str("path", filename).
		Msg("Research data saved")
	return nil
}

// ReadCSV loads every record from a file written by AppendCSV
func ReadCSV(filename string) ([]Metrics, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records []Metrics
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		if line == 1 && len(row) > 0 && row[0] == CSVHeader[0] {
			continue
		}

		m, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filename, line, err)
		}
		records = append(records, m)
	}
}

func parseRow(row []string) (Metrics, error) {
	if len(row) != len(CSVHeader) {
		return Metrics{}, fmt.Errorf("%w: %d fields, expected %d", ErrMalformedRow, len(row), len(CSVHeader))
	}

	var (
		m    Metrics
		errs []error
	)
	parseInt := func(s string) int {
		v, err := strconv.Atoi(s)
		errs = append(errs, err)
		return v
	}
	parseFloat := func(s string) float32 {
		v, err := strconv.ParseFloat(s, 32)
		errs = append(errs, err)
		return float32(v)
	}

	ts, err := strconv.ParseUint(row[0], 10, 64)
	errs = append(errs, err)
	id, err := strconv.ParseUint(row[2], 10, 32)
	errs = append(errs, err)

	m.Timestamp = ts
	m.MessageID = uint32(id)
	m.MessageType = MessageType(row[3])
	if !m.MessageType.Valid() {
		errs = append(errs, fmt.Errorf("unknown message type %q", row[3]))
	}
	m.PayloadSize = parseInt(row[4])
	m.TotalSize = parseInt(row[5])
	m.TransportOverhead = parseInt(row[6])
	m.SessionOverhead = parseInt(row[7])
	m.PresentationOverhead = parseInt(row[8])
	m.ApplicationOverhead = parseInt(row[9])
	m.EfficiencyPercent = parseFloat(row[10])
	m.OverheadPercent = parseFloat(row[11])

	if err := errors.Join(errs...); err != nil {
		return Metrics{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return m, nil
}
