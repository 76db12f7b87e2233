// Package testutil provides test helpers for chatvault tests.
//
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, ...)
//   - store_helpers.go: archive setup (NewTestStore)
//   - fs_helpers.go: filesystem helpers (WriteFile, MustExist, ...)
//   - export.go: on-disk export fixtures (NewExport, Messages)
//   - encoding.go: non-UTF-8 byte samples
package testutil
