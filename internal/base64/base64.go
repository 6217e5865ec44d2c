// Package base64 decodes the base64-wrapped METADATA_BLOCK_PICTURE
// field carried in Vorbis comments, using the standard RFC 4648
// alphabet rather than a hand-rolled table.
package base64

import "encoding/base64"

// DecodeString decodes standard (RFC 4648) base64 text, the alphabet
// METADATA_BLOCK_PICTURE and APEv2/ID3 binary-in-text fields use.
func DecodeString(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// EncodeToString encodes b as standard base64 text.
func EncodeToString(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
