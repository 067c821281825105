package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/wonny/fibivi/internal/contracts"
)

// DefaultEnvelopeMeta is the metadata a browser upload puts before the comma
const DefaultEnvelopeMeta = "data:text/csv;base64"

// DecodeEnvelope strips the metadata segment before the first comma and
// base64-decodes the rest.
func DecodeEnvelope(payload []byte) ([]byte, error) {
	idx := bytes.IndexByte(payload, ',')
	if idx < 0 {
		return nil, fmt.Errorf("%w: no ',' separator", contracts.ErrMalformedEnvelope)
	}

	content := bytes.TrimSpace(payload[idx+1:])

	out := make([]byte, base64.StdEncoding.DecodedLen(len(content)))
	n, err := base64.StdEncoding.Decode(out, content)
	if err != nil {
		// 패딩 없는 인코딩도 허용
		n, err = base64.RawStdEncoding.Decode(out, bytes.TrimRight(content, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", contracts.ErrMalformedEnvelope, err)
		}
	}

	return out[:n], nil
}

// EncodeEnvelope wraps raw bytes as "<meta>,<base64>"
func EncodeEnvelope(meta string, content []byte) []byte {
	if meta == "" {
		meta = DefaultEnvelopeMeta
	}
	enc := base64.StdEncoding.EncodeToString(content)

	out := make([]byte, 0, len(meta)+1+len(enc))
	out = append(out, meta...)
	out = append(out, ',')
	out = append(out, enc...)
	return out
}
