package pkpass

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"go.mozilla.org/pkcs7"
)

// Credentials is the signing material for one pass type.
type Credentials struct {
	Certificate *x509.Certificate
	PrivateKey  crypto.PrivateKey
	WWDR        *x509.Certificate
}

// LoadCredentials reads the signer certificate, its private key and the
// Apple WWDR intermediate from PEM files. All three must be present.
func LoadCredentials(certPath, keyPath, wwdrPath string) (Credentials, error) {
	certPEM, err := readCredentialFile("signer certificate", certPath)
	if err != nil {
		return Credentials{}, err
	}
	keyPEM, err := readCredentialFile("private key", keyPath)
	if err != nil {
		return Credentials{}, err
	}
	wwdrPEM, err := readCredentialFile("WWDR certificate", wwdrPath)
	if err != nil {
		return Credentials{}, err
	}

	cert, err := parseCertificate(certPEM)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: signer certificate: %v", ErrMissingCredentials, err)
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: private key: %v", ErrMissingCredentials, err)
	}
	wwdr, err := parseCertificate(wwdrPEM)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: WWDR certificate: %v", ErrMissingCredentials, err)
	}

	return Credentials{Certificate: cert, PrivateKey: key, WWDR: wwdr}, nil
}

func readCredentialFile(what, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: %s path not configured", ErrMissingCredentials, what)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingCredentials, what, err)
	}

	return b, nil
}

func parseCertificate(b []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	return x509.ParseCertificate(block.Bytes)
}

func parsePrivateKey(b []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	return nil, errors.New("unsupported private key format")
}

// Sign returns a detached PKCS#7 signature over the manifest.
func Sign(manifest []byte, creds Credentials) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, fmt.Errorf("pkcs7.NewSignedData -> %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	var parents []*x509.Certificate
	if creds.WWDR != nil {
		parents = append(parents, creds.WWDR)
	}
	if err = sd.AddSignerChain(creds.Certificate, creds.PrivateKey, parents, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("sd.AddSignerChain -> %w", err)
	}
	sd.Detach()

	sig, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("sd.Finish -> %w", err)
	}

	return sig, nil
}

// Verify checks a detached signature against the manifest it covers and
// the given trust roots.
func Verify(manifest, signature []byte, roots *x509.CertPool) error {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return fmt.Errorf("pkcs7.Parse -> %w", err)
	}
	p7.Content = manifest

	return p7.VerifyWithChain(roots)
}
