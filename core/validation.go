// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
)

// ValidateUtility validates a Utility before it enters storage.
//
// Validation rules:
//   - ID and Name must not be empty
//   - Status must be one of the known statuses (empty is accepted as working)
//   - Position must be a valid latitude/longitude pair
//   - Reports must not be negative
//
// NOT validated:
//   - Type (unknown categories are tolerated and simply never match a filter)
//   - Floor, Building, LastChecked (free text, may be empty)
func ValidateUtility(u *Utility) error {
	if u == nil {
		return fmt.Errorf("%w: utility is nil", ErrInvalidUtility)
	}

	if u.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUtility, ErrEmptyID)
	}

	if u.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUtility, ErrEmptyName)
	}

	if u.Status != "" {
		if err := ValidateStatus(u.Status); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidUtility, err)
		}
	}

	if err := ValidatePosition(u.Position); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUtility, err)
	}

	if u.Reports < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidUtility, ErrNegativeReports)
	}

	return nil
}

// ValidateReport validates a Report before it is stored.
func ValidateReport(r *Report) error {
	if r == nil {
		return fmt.Errorf("%w: report is nil", ErrInvalidReport)
	}
	if r.ID == "" || r.UtilityID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReport, ErrEmptyID)
	}
	return nil
}

// ValidateStatus validates that a Status has a known value.
func ValidateStatus(s Status) error {
	switch s {
	case StatusWorking, StatusReported, StatusMaintenance, StatusBroken:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidStatus, s)
}

// ValidatePosition checks latitude and longitude ranges.
func ValidatePosition(p Position) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fmt.Errorf("%w: NaN coordinate", ErrInvalidPosition)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %f", ErrInvalidPosition, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %f", ErrInvalidPosition, p.Lng)
	}
	return nil
}
