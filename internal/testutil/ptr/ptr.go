// Package ptr provides pointer helpers for optional fields in tests.
package ptr

// String returns a pointer to v.
func String(v string) *string { return &v }
