package jsbridge

import (
	"encoding/base64"
	"fmt"
)

// decodeB64 decodes the base64 chunk payload the writerJS shim sends.
func decodeB64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("jsbridge: invalid base64 chunk: %w", err)
	}
	return b, nil
}
