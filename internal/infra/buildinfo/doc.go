// Package buildinfo exposes build-time version information.
//
// Values are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv/internal/infra/buildinfo.Version=v1.0.0"
//
// The CLI reports Version as its lib-ver through CLIENT SETINFO.
package buildinfo
