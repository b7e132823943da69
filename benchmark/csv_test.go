package benchmark

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestAppendCSVWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research.csv")

	first := DefaultOverheadModel().Build(1, MessageCommissioning, make([]byte, 10), time.UnixMilli(1000))
	require.NoError(t, first.AppendCSV(path))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(CSVHeader, ","), lines[0])
	assert.Equal(t, "1000,Matter,1,COMMISSIONING,10,118,40,35,8,25,8.5,91.5", lines[1])

	second := DefaultOverheadModel().Build(2, MessageOnCommand, make([]byte, 4), time.UnixMilli(2000))
	require.NoError(t, second.AppendCSV(path))

	lines = readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, 1, strings.Count(strings.Join(lines, "\n"), "Timestamp,Protocol"))
	assert.Equal(t, "2000,Matter,2,ON_COMMAND,4,112,40,35,8,25,3.6,96.4", lines[2])

	// the lock is taken on the csv itself
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "research.csv", entries[0].Name())
}

func TestAppendCSVHeaderColumns(t *testing.T) {
	assert.Equal(t, []string{
		"Timestamp", "Protocol", "MessageID", "MessageType", "PayloadSize",
		"TotalSize", "TransportOverhead", "SessionOverhead",
		"PresentationOverhead", "ApplicationOverhead", "EfficiencyPercent", "OverheadPercent",
	}, CSVHeader)
	assert.Len(t, NewMetrics(1, MessageOnCommand, nil).Row(), len(CSVHeader))
}

func TestAppendCSVEmptyExistingFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, NewMetrics(1, MessageOnCommand, nil).AppendCSV(path))
	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Timestamp,"))
}

func TestAppendCSVDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	err := NewMetrics(1, MessageOnCommand, nil).AppendCSV(dir)
	require.Error(t, err)
}

func TestAppendCSVMissingParentFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "research.csv")
	err := NewMetrics(1, MessageOnCommand, nil).AppendCSV(path)
	require.Error(t, err)
}

func TestReadCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research.csv")
	model := DefaultOverheadModel()

	var want []Metrics
	for i, size := range []int{0, 4, 35, 100} {
		m := model.Build(uint32(i+1), MessageTypes[i], make([]byte, size), time.UnixMilli(int64(1000*(i+1))))
		require.NoError(t, m.AppendCSV(path))
		want = append(want, m)
	}

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Timestamp, got[i].Timestamp)
		assert.Equal(t, want[i].MessageID, got[i].MessageID)
		assert.Equal(t, want[i].MessageType, got[i].MessageType)
		assert.Equal(t, want[i].PayloadSize, got[i].PayloadSize)
		assert.Equal(t, want[i].TotalSize, got[i].TotalSize)
		assert.Equal(t, want[i].PresentationOverhead, got[i].PresentationOverhead)
		assert.InDelta(t, want[i].EfficiencyPercent, got[i].EfficiencyPercent, 0.05)
		assert.InDelta(t, want[i].OverheadPercent, got[i].OverheadPercent, 0.05)
	}
}

func TestReadCSVMalformed(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.csv")
	require.NoError(t, os.WriteFile(short, []byte(strings.Join(CSVHeader, ",")+"\n1,Matter,1\n"), 0o644))
	_, err := ReadCSV(short)
	assert.ErrorIs(t, err, ErrMalformedRow)

	text := filepath.Join(dir, "text.csv")
	row := "x,Matter,1,ON_COMMAND,4,112,40,35,8,25,3.6,96.4\n"
	require.NoError(t, os.WriteFile(text, []byte(strings.Join(CSVHeader, ",")+"\n"+row), 0o644))
	_, err = ReadCSV(text)
	assert.ErrorIs(t, err, ErrMalformedRow)

	unknown := filepath.Join(dir, "unknown.csv")
	row = "1000,Matter,1,on_command,4,112,40,35,8,25,3.6,96.4\n"
	require.NoError(t, os.WriteFile(unknown, []byte(strings.Join(CSVHeader, ",")+"\n"+row), 0o644))
	_, err = ReadCSV(unknown)
	assert.ErrorIs(t, err, ErrMalformedRow)
	assert.ErrorContains(t, err, `unknown message type "on_command"`)

	_, err = ReadCSV(filepath.Join(dir, "absent.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
