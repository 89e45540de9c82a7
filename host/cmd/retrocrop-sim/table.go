package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"retrocrop/core"
)

// tableFile is a crop table for experiments. The firmware's own table is
// compiled in; this only feeds the simulator.
type tableFile struct {
	Modes []tableEntry `yaml:"modes"`
}

type tableEntry struct {
	Name         string `yaml:"name"`
	FieldStart   uint16 `yaml:"field_start"`
	FieldEnd     uint16 `yaml:"field_end"`
	ScreenStart  uint16 `yaml:"screen_start"`
	ScreenEnd    uint16 `yaml:"screen_end"`
	CropStart    uint16 `yaml:"crop_start"`
	BorderLength uint16 `yaml:"border_length"`
	ScreenLength uint16 `yaml:"screen_length"`
	Alternate    int16  `yaml:"alternate"`
}

// LoadTable reads a crop table and its mode names from a YAML file
func LoadTable(filename string) (core.CropTable, []string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read table file: %w", err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse table file: %w", err)
	}

	table := make(core.CropTable, 0, len(file.Modes))
	names := make([]string, 0, len(file.Modes))
	for i, m := range file.Modes {
		table = append(table, core.CropSpec{
			LineFieldStart:      m.FieldStart,
			LineFieldEnd:        m.FieldEnd,
			LineScreenStart:     m.ScreenStart,
			LineScreenEnd:       m.ScreenEnd,
			CropStart:           m.CropStart,
			BorderCropLength:    m.BorderLength,
			ScreenCropLength:    m.ScreenLength,
			ScreenCropAlternate: m.Alternate,
		})
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mode%d", i)
		}
		names = append(names, name)
	}

	if err := table.Validate(); err != nil {
		return nil, nil, fmt.Errorf("table file %s: %w", filename, err)
	}
	return table, names, nil
}
