// Package mgba binds the harness core contract to a real libmgba
// installation through cgo. It is compiled only with the "mgba" build
// tag, so the default build of this module needs no C toolchain and no
// mGBA development headers:
//
//	go build -tags mgba ./...
//
// With the tag enabled, Register adds a factory that recognizes .gba
// and .agb images (or anything with a valid GBA cartridge header) and
// drives them through mGBA's mCore interface.
package mgba
