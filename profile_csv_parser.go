// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package scpi

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVProfileParser handles conversion between CSV and InstrumentProfile.
type CSVProfileParser struct {
	// CSV headers mapping
	headers []string
}

// NewCSVProfileParser creates a new CSV profile parser.
func NewCSVProfileParser() *CSVProfileParser {
	return &CSVProfileParser{
		headers: []string{
			"uuid",
			"tag",
			"alias",
			"kind",
			"networkAddress",
			"busAddress",
			"controllerPort",
			"timeoutMs",
			"pollCommand",
			"frequencyMs",
		},
	}
}

// ParseCSV parses CSV data and returns a slice of InstrumentProfile.
func (p *CSVProfileParser) ParseCSV(reader io.Reader) ([]InstrumentProfile, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file")
	}

	// Parse header row
	header := records[0]
	headerMap := make(map[string]int)
	for i, h := range header {
		headerMap[strings.TrimSpace(h)] = i
	}

	// Validate required fields in header
	requiredFields := []string{"tag", "kind"}
	for _, field := range requiredFields {
		if _, exists := headerMap[field]; !exists {
			return nil, fmt.Errorf("missing required field in CSV header: %s", field)
		}
	}

	// Parse data rows
	var profiles []InstrumentProfile
	tags := make(map[string]bool)
	for i, record := range records[1:] {
		profile, err := p.parseProfileFromRecord(record, headerMap, i+2)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+2, err)
		}

		if err := profile.Validate(); err != nil {
			return nil, fmt.Errorf("validation error for row %d (Tag: %s): %w", i+2, profile.Tag, err)
		}
		if tags[profile.Tag] {
			return nil, fmt.Errorf("duplicate tag at row %d: %s", i+2, profile.Tag)
		}
		tags[profile.Tag] = true

		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// parseProfileFromRecord parses a single CSV record into an InstrumentProfile.
func (p *CSVProfileParser) parseProfileFromRecord(record []string, headerMap map[string]int, rowNum int) (InstrumentProfile, error) {
	var profile InstrumentProfile

	// Helper function to get field value
	getField := func(fieldName string) string {
		if idx, exists := headerMap[fieldName]; exists && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	// Helper function for parsing integers
	parseIntField := func(fieldName string, bitSize int) (int64, error) {
		strVal := getField(fieldName)
		if strVal == "" {
			return 0, nil
		}
		val, err := strconv.ParseInt(strVal, 10, bitSize)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s': %w", fieldName, err)
		}
		return val, nil
	}

	profile.UUID = getField("uuid")

	profile.Tag = getField("tag")
	if profile.Tag == "" {
		return profile, fmt.Errorf("'tag' is required at row %d", rowNum)
	}

	profile.Alias = getField("alias")

	profile.Kind = getField("kind")
	if profile.Kind == "" {
		return profile, fmt.Errorf("'kind' is required at row %d", rowNum)
	}

	profile.NetworkAddress = getField("networkAddress")
	profile.ControllerPort = getField("controllerPort")
	profile.PollCommand = getField("pollCommand")

	busAddress, err := parseIntField("busAddress", 32)
	if err != nil {
		return profile, fmt.Errorf("at row %d: %w", rowNum, err)
	}
	profile.BusAddress = int(busAddress)

	timeoutMs, err := parseIntField("timeoutMs", 32)
	if err != nil {
		return profile, fmt.Errorf("at row %d: %w", rowNum, err)
	}
	profile.TimeoutMs = int(timeoutMs)

	frequencyMs, err := parseIntField("frequencyMs", 64)
	if err != nil {
		return profile, fmt.Errorf("at row %d: %w", rowNum, err)
	}
	profile.FrequencyMs = frequencyMs

	return profile, nil
}

// ToCSV serializes profiles into CSV with the canonical header order.
func (p *CSVProfileParser) ToCSV(profiles []InstrumentProfile, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)

	if err := csvWriter.Write(p.headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, profile := range profiles {
		record := []string{
			profile.UUID,
			profile.Tag,
			profile.Alias,
			profile.Kind,
			profile.NetworkAddress,
			strconv.Itoa(profile.BusAddress),
			profile.ControllerPort,
			strconv.Itoa(profile.TimeoutMs),
			profile.PollCommand,
			strconv.FormatInt(profile.FrequencyMs, 10),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record for tag %s: %w", profile.Tag, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
