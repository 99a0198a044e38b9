package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/lostfound/core"
)

// Key prefixes for different data types
const (
	reportPrefix           = "report"
	reportKindStatusPrefix = "rptks"
	reportDatePrefix       = "rptdt"
	reportIDSeq            = "rptseq"
)

// makeReportKey generates a key for a report by ID.
func makeReportKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", reportPrefix, id))
}

// makeKindStatusKey generates a composite key for the kind/status index.
// Format: prefix:kind:status:id
func makeKindStatusKey(kind core.Kind, status core.Status, id core.ID) []byte {
	buf := makePartialKindStatusKey(kind, status)
	// BigEndian so iteration follows ID (submission) order
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makePartialKindStatusKey generates the prefix shared by every report with
// the given kind and status.
func makePartialKindStatusKey(kind core.Kind, status core.Status) []byte {
	prefix := reportKindStatusPrefix + ":"
	buf := make([]byte, 0, len(prefix)+2+8)
	buf = append(buf, prefix...)
	buf = append(buf, byte(kind), byte(status))
	return buf
}

// makeReportDateKey generates a composite key for the per-kind date index.
// Format: prefix:kind:timestamp:id
func makeReportDateKey(kind core.Kind, reportedAt time.Time, id core.ID) []byte {
	buf := makePartialReportDateKey(kind)
	// Write in BigEndian order so lexicographic sort works correctly
	buf = binary.BigEndian.AppendUint64(buf, uint64(reportedAt.UnixMicro()))
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makePartialReportDateKey generates the prefix of the date index for a kind.
// Format: prefix:kind
func makePartialReportDateKey(kind core.Kind) []byte {
	prefix := reportDatePrefix + ":"
	buf := make([]byte, 0, len(prefix)+1+16)
	buf = append(buf, prefix...)
	return append(buf, byte(kind))
}

// seekLast returns a key that sorts after every key starting with prefix.
func seekLast(prefix []byte) []byte {
	key := make([]byte, 0, len(prefix)+17)
	key = append(key, prefix...)
	for i := 0; i < 17; i++ {
		key = append(key, 0xff)
	}
	return key
}
