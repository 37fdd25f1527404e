// Package decode turns raw asset bytes into CPU-side payloads.
//
// Everything here is a pure function of its input and safe to call from
// worker goroutines.
//
// # Images
//
// DecodeImage accepts PNG, JPEG, GIF, BMP, TIFF and WebP and always
// returns tightly packed RGBA8 pixels.
//
// # Models
//
// Models are stored as a MessagePack encoded [ParsedModel]. Files under the
// protected asset namespace carry a trailing ed25519 signature over the
// encoded body:
//
//	+---------------------+------------------+
//	| msgpack ParsedModel | 64-byte signature |
//	+---------------------+------------------+
//
// Use DecodeVerifiedModel for signed files and DecodeModel for the rest.
// EncodeModel and Sign produce files in the same layout for tools and tests.
package decode
