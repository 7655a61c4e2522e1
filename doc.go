/*
Package cpanctl is a tool for maintaining a private CPAN-style repository
layered over a mirrored package archive.

cpanctl stages privately built distributions and merges them into the
archive with features including:
  - Fixed-column 02packages record formatting
  - Streaming merge into the compressed package index
  - Per-author CHECKSUMS manifest regeneration
  - Optional PGP clear-signing of manifests
  - Remote site liveness probing

The main packages are:

	github.com/cpanctl/cpanctl/internal/cpan  - Record format, author paths and checksum manifests
	github.com/cpanctl/cpanctl/internal/repo  - Repository orchestration and the index merge engine
	github.com/cpanctl/cpanctl/cmd/cpanctl    - Command-line interface
*/
package cpanctl
