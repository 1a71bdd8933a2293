package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
	"github.com/soltixdb/tankwatch/internal/utils"
)

// CSV column names. Only timestamp and level_percent are required.
const (
	ColumnTimestamp      = "timestamp"
	ColumnLevelPercent   = "level_percent"
	ColumnLevelLiters    = "level_liters"
	ColumnRawPercent     = "raw_percent"
	ColumnBatteryVoltage = "battery_voltage"
	ColumnIsOnline       = "is_online"
)

var csvTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ReadCSV parses a reading export with a header row. Timestamps without an
// offset are taken as UTC. Rows are returned in file order.
func ReadCSV(r io.Reader) ([]telemetry.Reading, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{ColumnTimestamp, ColumnLevelPercent} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required csv column: %s", required)
		}
	}

	var readings []telemetry.Reading
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		reading, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		readings = append(readings, reading)
	}

	return readings, nil
}

func parseRecord(record []string, cols map[string]int) (telemetry.Reading, error) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var reading telemetry.Reading

	ts, err := parseCSVTime(cell(ColumnTimestamp))
	if err != nil {
		return reading, err
	}
	reading.Timestamp = ts

	level, err := utils.ParseOptionalFloat(cell(ColumnLevelPercent))
	if err != nil {
		return reading, fmt.Errorf("%s: %w", ColumnLevelPercent, err)
	}
	if level == nil {
		return reading, fmt.Errorf("%s is empty", ColumnLevelPercent)
	}
	reading.LevelPercent = *level

	optional := []struct {
		name string
		dst  **float64
	}{
		{ColumnLevelLiters, &reading.LevelLiters},
		{ColumnRawPercent, &reading.RawPercent},
		{ColumnBatteryVoltage, &reading.BatteryVoltage},
	}
	for _, o := range optional {
		v, err := utils.ParseOptionalFloat(cell(o.name))
		if err != nil {
			return reading, fmt.Errorf("%s: %w", o.name, err)
		}
		*o.dst = v
	}

	if s := cell(ColumnIsOnline); s != "" {
		online, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return reading, fmt.Errorf("%s: invalid boolean %q", ColumnIsOnline, s)
		}
		reading.IsOnline = &online
	}

	return reading, nil
}

func parseCSVTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is empty", ColumnTimestamp)
	}
	for _, layout := range csvTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid %s %q", ColumnTimestamp, s)
}
