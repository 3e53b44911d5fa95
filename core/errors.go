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

import "errors"

// Domain validation errors
var (
	// ErrInvalidUtility indicates a Utility failed validation.
	ErrInvalidUtility = errors.New("invalid utility")

	// ErrInvalidReport indicates a Report failed validation.
	ErrInvalidReport = errors.New("invalid report")

	// ErrEmptyID indicates the ID field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidStatus indicates a Status outside the known set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPosition indicates a latitude or longitude out of range.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrNegativeReports indicates a negative report count.
	ErrNegativeReports = errors.New("report count cannot be negative")
)
