// Package sanitizer normalizes patient and doctor input before validation and
// storage.
//
// All functions are idempotent. Text is composed to NFC so visually equal
// names compare equal. None of them reject input; validation decides whether
// the result is acceptable.
package sanitizer
