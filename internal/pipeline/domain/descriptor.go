package domain

// descriptorHeaderLines is the number of lines every extra descriptor repeats
// before its own dependency entries (name, channels, the channel itself).
const descriptorHeaderLines = 3

// ChannelConfig is the exact content of the generated channel configuration
// file: a channels key, a single conda-forge entry, and a trailing blank line.
// It is constant regardless of workflow inputs.
const ChannelConfig = "channels:\n  - conda-forge\n\n"

// MergeDescriptors combines a base environment descriptor with an extra one.
// The base bytes are kept verbatim; the extra descriptor contributes
// everything from its fourth line onward. An extra descriptor of three or
// fewer lines contributes nothing.
func MergeDescriptors(base, extra []byte) []byte {
	tail := skipLines(extra, descriptorHeaderLines)
	out := make([]byte, 0, len(base)+len(tail))
	out = append(out, base...)
	out = append(out, tail...)
	return out
}

// skipLines returns the bytes following the first n newline characters, or
// nil when the input has fewer than n newlines.
func skipLines(b []byte, n int) []byte {
	for i := 0; i < len(b); i++ {
		if b[i] != '\n' {
			continue
		}
		n--
		if n == 0 {
			return b[i+1:]
		}
	}
	return nil
}
