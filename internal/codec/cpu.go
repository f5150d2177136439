package codec

import "golang.org/x/sys/cpu"

// init selects the fastest available pack/unpack implementation at
// startup, the same strategy original_source/common/src/compression/cpu.rs
// uses (is_x86_feature_detected!), backed here by golang.org/x/sys/cpu
// instead of hand-written CPUID probes.
func init() {
	if wideVariantAvailable() {
		packBytes = packBytesWide
		unpackXOR = unpackXORWide
	}
}

func wideVariantAvailable() bool {
	switch {
	case cpu.X86.HasSSE2, cpu.X86.HasAVX2:
		return true
	case cpu.ARM64.HasASIMD:
		return true
	default:
		return false
	}
}
