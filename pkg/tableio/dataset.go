package tableio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arnavshah/roster-solver/pkg/models"
	"gopkg.in/yaml.v3"
)

// Sheet file names inside a dataset directory
const (
	AvailabilityFile = "availability.csv"
	CapabilityFile   = "capabilities.csv"
	FullTimeFile     = "fulltime.csv"
	WeightsFile      = "weights.csv"
	HeadcountFile    = "headcount.csv"
)

// Sheets are the CSV inputs of one dataset. Availability and Capability are
// required, the rest may be nil.
type Sheets struct {
	Availability io.Reader
	Capability   io.Reader
	FullTime     io.Reader
	Weights      io.Reader
	Headcount    io.Reader
}

// LoadDataset reads the sheets into a dataset. Day and role order follow
// the sheet columns.
func LoadDataset(s Sheets) (*models.Dataset, error) {
	if s.Availability == nil || s.Capability == nil {
		return nil, errors.New("tableio: availability and capability sheets are required")
	}
	ds := &models.Dataset{}
	var err error
	if ds.Availabilities, ds.Days, err = ReadAvailabilities(s.Availability); err != nil {
		return nil, fmt.Errorf("tableio: availability: %w", err)
	}
	if ds.Capabilities, ds.Roles, err = ReadCapabilities(s.Capability); err != nil {
		return nil, fmt.Errorf("tableio: capabilities: %w", err)
	}
	if s.FullTime != nil {
		if ds.FullTime, err = ReadFullTime(s.FullTime); err != nil {
			return nil, fmt.Errorf("tableio: fulltime: %w", err)
		}
	}
	if s.Weights != nil {
		if ds.Weights, err = ReadWeights(s.Weights); err != nil {
			return nil, fmt.Errorf("tableio: weights: %w", err)
		}
	}
	if s.Headcount != nil {
		if ds.RequiredHeadcount, err = ReadHeadcount(s.Headcount); err != nil {
			return nil, fmt.Errorf("tableio: headcount: %w", err)
		}
	}
	return ds, nil
}

// LoadDir reads a directory holding the sheet files
func LoadDir(dir string) (*models.Dataset, error) {
	var s Sheets
	targets := []struct {
		name     string
		dst      *io.Reader
		required bool
	}{
		{AvailabilityFile, &s.Availability, true},
		{CapabilityFile, &s.Capability, true},
		{FullTimeFile, &s.FullTime, false},
		{WeightsFile, &s.Weights, false},
		{HeadcountFile, &s.Headcount, false},
	}
	for _, t := range targets {
		f, err := os.Open(filepath.Join(dir, t.name))
		if errors.Is(err, os.ErrNotExist) && !t.required {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("tableio: %w", err)
		}
		defer f.Close()
		*t.dst = f
	}
	return LoadDataset(s)
}

// LoadFile reads a dataset from a JSON or YAML file, or from a directory of
// CSV sheets
func LoadFile(path string) (*models.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("tableio: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tableio: %w", err)
	}
	ds := &models.Dataset{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, ds)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, ds)
	default:
		return nil, fmt.Errorf("tableio: unsupported dataset format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("tableio: decode %s: %w", path, err)
	}
	return ds, nil
}
