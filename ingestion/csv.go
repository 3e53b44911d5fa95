package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/poiesic/wayfind/core"
)

// Seed file columns.
const (
	columnName        = "Name"
	columnType        = "Type"
	columnBuilding    = "Building"
	columnFloor       = "Floor"
	columnID          = "Id"
	columnLatitude    = "Latitude"
	columnLongitude   = "Longitude"
	columnStatus      = "Status"
	columnLastChecked = "LastChecked"
)

var (
	requiredColumns = []string{columnName, columnType, columnBuilding, columnFloor, columnID, columnLatitude, columnLongitude}
	exportColumns   = append(append([]string{}, requiredColumns...), columnStatus, columnLastChecked)
)

// ReadCSV parses a seed file into utilities, in file order.
// Columns are matched by header name. Status and LastChecked are optional;
// a missing or empty Status means working.
func ReadCSV(r io.Reader) ([]*core.Utility, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		// Strip a UTF-8 byte order mark left by spreadsheet exports
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		index[name] = i
	}
	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
	}

	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var utilities []*core.Utility
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}
		utility, err := parseRecord(record, field)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		utilities = append(utilities, utility)
	}

	return utilities, nil
}

func parseRecord(record []string, field func([]string, string) string) (*core.Utility, error) {
	lat, err := strconv.ParseFloat(field(record, columnLatitude), 64)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(field(record, columnLongitude), 64)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}

	status := core.Status(strings.ToLower(field(record, columnStatus)))
	if status == "" {
		status = core.StatusWorking
	}

	utility := &core.Utility{
		ID:          field(record, columnID),
		Name:        field(record, columnName),
		Type:        field(record, columnType),
		Building:    field(record, columnBuilding),
		Floor:       field(record, columnFloor),
		Position:    core.Position{Lat: lat, Lng: lng},
		Status:      status,
		LastChecked: field(record, columnLastChecked),
	}
	if err := core.ValidateUtility(utility); err != nil {
		return nil, err
	}
	return utility, nil
}

// WriteCSV writes utilities as a seed file that ReadCSV accepts.
// The seven seed columns come first, followed by Status and LastChecked.
func WriteCSV(w io.Writer, utilities []core.Utility) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportColumns); err != nil {
		return err
	}

	for _, u := range utilities {
		record := []string{
			u.Name,
			u.Type,
			u.Building,
			u.Floor,
			u.ID,
			strconv.FormatFloat(u.Position.Lat, 'f', -1, 64),
			strconv.FormatFloat(u.Position.Lng, 'f', -1, 64),
			string(u.Status),
			u.LastChecked,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
