package cpan

import (
	"bytes"
	"crypto/md5" // #nosec G501 - MD5 kept for CPAN CHECKSUMS compatibility
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// ManifestFilename is the per-directory checksum manifest name.
	ManifestFilename = "CHECKSUMS"

	manifestHeader = "# CHECKSUMS generated by cpanctl - do not edit\n"

	defaultMaxHashers = 4
)

// FileSum holds the recorded checksums for one file in a manifest.
type FileSum struct {
	Size   int64  `json:"size"`
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
	MTime  string `json:"mtime"`
}

// DigestFile reads the named file once and returns its FileSum.
func DigestFile(path string) (*FileSum, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from directory listing
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	md5hash := md5.New() // #nosec G401 - MD5 kept for CPAN CHECKSUMS compatibility
	sha256hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(md5hash, sha256hash), f)
	if err != nil {
		return nil, err
	}

	return &FileSum{
		Size:   n,
		MD5:    hex.EncodeToString(md5hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256hash.Sum(nil)),
		MTime:  st.ModTime().UTC().Format("2006-01-02"),
	}, nil
}

// Updater regenerates CHECKSUMS manifests for author directories.
//
// The manifest lists every regular file in the directory except the
// manifest itself.  When a Signer is set the manifest body is clear-signed.
type Updater struct {
	FileMode   os.FileMode
	Signer     *Signer
	MaxHashers int
}

// NewUpdater constructs an Updater with the given file mode policy.
func NewUpdater(fileMode os.FileMode, signer *Signer) *Updater {
	return &Updater{
		FileMode:   fileMode,
		Signer:     signer,
		MaxHashers: defaultMaxHashers,
	}
}

// Update rewrites the CHECKSUMS manifest for dir.
func (u *Updater) Update(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "Updater.Update")
	}

	sums := make(map[string]*FileSum)
	var mu sync.Mutex

	maxHashers := u.MaxHashers
	if maxHashers <= 0 {
		maxHashers = defaultMaxHashers
	}
	var group errgroup.Group
	group.SetLimit(maxHashers)

	for _, entry := range entries {
		if !entry.Type().IsRegular() || entry.Name() == ManifestFilename {
			continue
		}
		name := entry.Name()
		group.Go(func() error {
			sum, err := DigestFile(filepath.Join(dir, name))
			if err != nil {
				return errors.Wrap(err, "digest "+name)
			}
			mu.Lock()
			sums[name] = sum
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	body, err := marshalManifest(sums)
	if err != nil {
		return err
	}

	if u.Signer != nil {
		body, err = u.Signer.ClearSign(body)
		if err != nil {
			return errors.Wrap(err, "sign manifest")
		}
	}

	manifestPath := filepath.Join(dir, ManifestFilename)
	if err := os.WriteFile(manifestPath, body, u.FileMode); err != nil {
		return errors.Wrap(err, "write manifest")
	}
	// WriteFile does not chmod pre-existing files.
	if err := os.Chmod(manifestPath, u.FileMode); err != nil {
		return errors.Wrap(err, "chmod manifest")
	}
	return nil
}

func marshalManifest(sums map[string]*FileSum) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(manifestHeader)
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	// The JSON encoder emits map keys in sorted order, so the manifest
	// is deterministic.
	if err := enc.Encode(sums); err != nil {
		return nil, errors.Wrap(err, "encode manifest")
	}
	return buf.Bytes(), nil
}

// ParseManifest reads a manifest body back into filename keyed sums.
// A clear-signature envelope, if present, is not verified here; callers
// use Signer.Verify for that.
func ParseManifest(data []byte) (map[string]*FileSum, error) {
	idx := bytes.IndexByte(data, '{')
	if idx < 0 {
		return nil, errors.New("no manifest body found")
	}
	end := bytes.LastIndexByte(data, '}')
	if end < idx {
		return nil, errors.New("truncated manifest body")
	}
	sums := make(map[string]*FileSum)
	if err := json.Unmarshal(data[idx:end+1], &sums); err != nil {
		return nil, errors.Wrap(err, "decode manifest")
	}
	return sums, nil
}
