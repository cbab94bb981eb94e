//go:build !linux
// +build !linux

package simt

// systemMemory returns total system memory in bytes. Without an OS-specific
// probe a fixed default is reported.
func systemMemory() uint64 {
	return defaultSystemMemory
}
