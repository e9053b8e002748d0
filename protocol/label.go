package protocol

import "log"

// LabelSize is the fixed wire size of a device/tile label.
const LabelSize = 32

// GroupLabelSize is the fixed wire size of group and location labels.
const GroupLabelSize = 16

// EncodeLabel writes label into dst (length must be exactly size),
// NUL-padding and truncating with a warning on overflow, per spec.md
// §4.1's label encoding rule.
func EncodeLabel(label string, size int, dst []byte) {
	b := []byte(label)
	if len(b) > size {
		log.Printf("lifx: label %q truncated to %d bytes on pack", label, size)
		b = b[:size]
	}
	copy(dst, b)
	for i := len(b); i < size; i++ {
		dst[i] = 0
	}
}

// DecodeLabel reads a NUL-padded label from b, trimming trailing NULs. An
// all-NUL label decodes to the empty string (devices can legitimately
// report one).
func DecodeLabel(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
