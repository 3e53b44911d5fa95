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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/wayfind/core"
)

// MarshalSeq serializes an order sequence number to bytes.
func MarshalSeq(seq uint64) []byte {
	buf := make([]byte, varint.Uint64.Size(seq))
	varint.Uint64.Marshal(seq, buf)
	return buf
}

// UnmarshalSeq deserializes an order sequence number from bytes.
func UnmarshalSeq(data []byte) (uint64, error) {
	seq, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return seq, nil
}

// MarshalUtility serializes a Utility to bytes.
func MarshalUtility(utility *core.Utility) []byte {
	buf := make([]byte, core.UtilityMUS.Size(*utility))
	core.UtilityMUS.Marshal(*utility, buf)
	return buf
}

// UnmarshalUtility deserializes a Utility from bytes.
func UnmarshalUtility(data []byte) (*core.Utility, error) {
	utility, _, err := core.UtilityMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &utility, nil
}

// MarshalReport serializes a Report to bytes.
func MarshalReport(report *core.Report) []byte {
	buf := make([]byte, core.ReportMUS.Size(*report))
	core.ReportMUS.Marshal(*report, buf)
	return buf
}

// UnmarshalReport deserializes a Report from bytes.
func UnmarshalReport(data []byte) (*core.Report, error) {
	report, _, err := core.ReportMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &report, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &checkpoint, nil
}
