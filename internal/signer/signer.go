package signer

import (
	"errors"
	"fmt"

	"github.com/facturis/efactura-service/internal/config"
	"github.com/facturis/efactura-service/internal/domain"
)

// CredentialError marks signing failures caused by missing or invalid
// credential material rather than by the signing operation itself. The
// distinction matters for retries: credential problems need an operator.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string { return e.Err.Error() }
func (e *CredentialError) Unwrap() error { return e.Err }

// XMLSigner sequences credential retrieval and the external signing
// capability. It owns no cryptography of its own.
type XMLSigner struct {
	capability domain.SigningCapability
	settings   *config.AnafConfig
}

func NewXMLSigner(capability domain.SigningCapability, settings *config.AnafConfig) *XMLSigner {
	return &XMLSigner{
		capability: capability,
		settings:   settings,
	}
}

// Sign feeds unsigned XML plus the decrypted key material into the signing
// capability and reclassifies failures: credential problems surface as
// ErrSecurityConfiguration, everything else as ErrSigning.
func (s *XMLSigner) Sign(xmlData []byte) ([]byte, error) {
	if len(xmlData) == 0 {
		return nil, fmt.Errorf("%w: no XML content to sign", domain.ErrPreconditionFailed)
	}

	certificate, err := s.settings.DecryptedCertificate()
	if err != nil {
		return nil, fmt.Errorf("%w: client certificate: %v", domain.ErrSecurityConfiguration, err)
	}
	privateKey, err := s.settings.DecryptedPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", domain.ErrSecurityConfiguration, err)
	}

	signedXML, err := s.capability.Sign(xmlData, certificate, privateKey)
	if err != nil {
		var credErr *CredentialError
		if errors.As(err, &credErr) {
			return nil, fmt.Errorf("%w: %v", domain.ErrSecurityConfiguration, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}

	return signedXML, nil
}
