package core

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

var blockTimeKey = []byte(`"blockTime":`)

// ExtractBlockTime scans buf for the literal byte sequence
// `"blockTime":` and captures the characters up to the next `,` or
// `}`. It returns the captured text verbatim with no numeric conversion. If
// the key is not found the block proceeds with an empty block-time; a
// warning is logged and the caller continues (per-block-recoverable).
func ExtractBlockTime(buf []byte) string {
	idx := bytes.Index(buf, blockTimeKey)
	if idx < 0 {
		logrus.Warn("ingestd: blockTime key not found in block payload")
		return ""
	}
	valueStart := idx + len(blockTimeKey)
	end := bytes.IndexAny(buf[valueStart:], ",}")
	if end < 0 {
		logrus.Warn("ingestd: blockTime value has no trailing delimiter")
		return ""
	}
	return string(buf[valueStart : valueStart+end])
}
