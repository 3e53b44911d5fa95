package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	utilityRecordPrefix   = "utirec:"
	utilityOrderPrefix    = "utiord:"
	utilityPositionPrefix = "utipos:"
	utilityOrderSeq       = "utiordseq"
	utilityIDSeq          = "utiidseq"
	reportRecordPrefix    = "reprec:"
	checkpointPrefix      = "chkpt:"
)

// reportKeySeparator ends the utility ID inside a report key.
const reportKeySeparator = 0x00

// makeUtilityKey generates a key for a utility by ID.
func makeUtilityKey(id string) []byte {
	return []byte(utilityRecordPrefix + id)
}

// makeUtilityOrderKey generates a key for the insertion order index.
// Format: prefix:seq
func makeUtilityOrderKey(seq uint64) []byte {
	buf := make([]byte, len(utilityOrderPrefix)+8)
	offset := copy(buf, utilityOrderPrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeUtilityPositionKey generates a key mapping a utility ID to its order sequence.
func makeUtilityPositionKey(id string) []byte {
	return []byte(utilityPositionPrefix + id)
}

// makePartialReportKey generates a partial key for all reports of a utility.
// Format: prefix:utilityID\x00
func makePartialReportKey(utilityID string) []byte {
	buf := make([]byte, 0, len(reportRecordPrefix)+len(utilityID)+1)
	buf = append(buf, reportRecordPrefix...)
	buf = append(buf, utilityID...)
	return append(buf, reportKeySeparator)
}

// makeReportKey generates a composite key for a report.
// Format: prefix:utilityID\x00timestamp reportID
func makeReportKey(utilityID string, createdAt time.Time, reportID string) []byte {
	partial := makePartialReportKey(utilityID)
	buf := make([]byte, len(partial)+8+len(reportID))
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], reportID)
	return buf
}

// utilityIDFromReportKey extracts the utility ID from a report key.
func utilityIDFromReportKey(key []byte) (string, bool) {
	rest := key[len(reportRecordPrefix):]
	for i, b := range rest {
		if b == reportKeySeparator {
			return string(rest[:i]), true
		}
	}
	return "", false
}

// makeCheckpointKey generates a key for import checkpoints.
func makeCheckpointKey(source string) []byte {
	return []byte(checkpointPrefix + source)
}
