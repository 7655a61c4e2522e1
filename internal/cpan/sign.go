package cpan

import (
	"os"

	"github.com/ProtonMail/gopenpgp/v3/crypto"
	"github.com/cockroachdb/errors"
)

// Signer clear-signs checksum manifests with a private PGP key.
type Signer struct {
	key *crypto.Key
	pgp *crypto.PGPHandle
}

// NewSigner parses an armored private key.  passphrase may be nil for
// unencrypted keys.
func NewSigner(armoredKey, passphrase []byte) (*Signer, error) {
	key, err := crypto.NewPrivateKeyFromArmored(string(armoredKey), passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "parse signing key")
	}
	return &Signer{
		key: key,
		pgp: crypto.PGP(),
	}, nil
}

// NewSignerFromFile reads an armored private key from path.
func NewSignerFromFile(path string, passphrase []byte) (*Signer, error) {
	armored, err := os.ReadFile(path) // #nosec G304 - path comes from validated config
	if err != nil {
		return nil, errors.Wrap(err, "read signing key")
	}
	return NewSigner(armored, passphrase)
}

// ClearSign wraps data in a cleartext signature envelope.
func (s *Signer) ClearSign(data []byte) ([]byte, error) {
	signer, err := s.pgp.Sign().SigningKey(s.key).New()
	if err != nil {
		return nil, errors.Wrap(err, "create signer")
	}
	signed, err := signer.SignCleartext(data)
	if err != nil {
		return nil, errors.Wrap(err, "sign cleartext")
	}
	return signed, nil
}

// Verify checks a clear-signed manifest against the signer's public key
// and returns the verified body.
func (s *Signer) Verify(signed []byte) ([]byte, error) {
	pub, err := s.key.ToPublic()
	if err != nil {
		return nil, errors.Wrap(err, "derive public key")
	}
	verifier, err := s.pgp.Verify().VerificationKey(pub).New()
	if err != nil {
		return nil, errors.Wrap(err, "create verifier")
	}
	result, err := verifier.VerifyCleartext(signed)
	if err != nil {
		return nil, errors.Wrap(err, "verify cleartext")
	}
	if sigErr := result.SignatureError(); sigErr != nil {
		return nil, errors.Wrap(sigErr, "manifest signature invalid")
	}
	return result.Cleartext(), nil
}
