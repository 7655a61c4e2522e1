package repo

import (
	"context"
)

// ManifestUpdater regenerates the checksum manifest of one author
// directory.  The injector invokes it for every directory it touched.
type ManifestUpdater interface {
	Update(dir string) error
}

// MirrorSyncer synchronizes the local archive from an upstream site.
// Mirroring itself is an external capability; cpanctl only consumes the
// contract and never implements the transfer.
type MirrorSyncer interface {
	Sync(ctx context.Context) error
}

// Repo ties the private repository and the mirrored archive together.
// Collaborators are held by composition; there is no locking, so callers
// must guarantee sequential, single-operator access.
type Repo struct {
	config  *Config
	list    *ModuleList
	updater ManifestUpdater
	quiet   bool
}

// New constructs a Repo.  updater may be nil when the caller never
// injects (for example, plain add runs followed by Save).
func New(config *Config, updater ManifestUpdater, quiet bool) *Repo {
	return &Repo{
		config:  config,
		list:    NewModuleList(config.Repository, config.FileMode()),
		updater: updater,
		quiet:   quiet,
	}
}

// List returns the repository's module list.
func (r *Repo) List() *ModuleList {
	return r.list
}
