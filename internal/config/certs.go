package config

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"

	"github.com/pkg/errors"
)

// fingerprintPEM parses the leaf certificate's PEM block and returns the
// lowercase hex SHA-256 of its DER encoding plus its DNS
// subject-alternative names (IP-address SANs are not returned), per spec
// §3/§6/GLOSSARY. Using crypto/x509 and crypto/sha256 is a
// deliberate stdlib choice: no library in the example pack offers anything
// beyond what these two stdlib packages already do for DER/PEM parsing and
// hashing (see DESIGN.md).
func fingerprintPEM(certPEM string) (fingerprint string, sans []string, err error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return "", nil, errors.Wrap(ErrInvariantViolated, "certificate: no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", nil, errors.Wrapf(ErrInvariantViolated, "certificate: parse DER: %v", err)
	}
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:]), cert.DNSNames, nil
}
