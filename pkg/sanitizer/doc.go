// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input is normalized to an empty value rather than
// reported as an error; validators decide whether empty is acceptable.
package sanitizer
