// Package version reports the build version of phrame.
//
// Version and commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/phrame/version.Version=1.2.0" ./cmd/phrame
//
// Unset values fall back to the VCS stamp Go embeds in the binary.
package version
