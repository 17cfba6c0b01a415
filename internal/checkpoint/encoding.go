package checkpoint

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"github.com/sumerian-dev/sumerian/internal/integrity"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// encodeContent inlines data as text when it is valid UTF-8 and as base64
// otherwise, so metadata.json round-trips arbitrary bytes.
func encodeContent(data []byte) (string, model.ContentEncoding) {
	if utf8.Valid(data) {
		return string(data), model.EncodingUTF8
	}
	return base64.StdEncoding.EncodeToString(data), model.EncodingBase64
}

// decodeContent returns the inlined bytes of f, checked against its hash.
func decodeContent(f model.CheckpointFile) ([]byte, error) {
	var data []byte
	switch f.Encoding {
	case model.EncodingUTF8, "":
		data = []byte(f.Content)
	case model.EncodingBase64:
		var err error
		data, err = base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return nil, fmt.Errorf("decode inline content: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown content encoding %q", f.Encoding)
	}
	if f.SHA256 != "" && integrity.ComputeContentHash(data) != f.SHA256 {
		return nil, fmt.Errorf("inline content hash mismatch")
	}
	return data, nil
}
