// Package sanitizer provides input normalization for guest-supplied data.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions handle invalid input gracefully, typically by returning
// empty strings rather than errors, leaving rejection decisions to the validators.
package sanitizer
