package signer

import (
	"crypto/rsa"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// XMLDSigCapability produces enveloped XML-DSig signatures from PEM key
// material. It is the default implementation of domain.SigningCapability.
type XMLDSigCapability struct{}

func NewXMLDSigCapability() *XMLDSigCapability {
	return &XMLDSigCapability{}
}

type pemKeyStore struct {
	key  *rsa.PrivateKey
	cert []byte
}

func (s *pemKeyStore) GetKeyPair() (*rsa.PrivateKey, []byte, error) {
	return s.key, s.cert, nil
}

func (c *XMLDSigCapability) Sign(xmlData, certificatePEM, privateKeyPEM []byte) ([]byte, error) {
	pair, err := tls.X509KeyPair(certificatePEM, privateKeyPEM)
	if err != nil {
		return nil, &CredentialError{Err: fmt.Errorf("loading key pair: %w", err)}
	}
	rsaKey, ok := pair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, &CredentialError{Err: errors.New("private key is not RSA")}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlData); err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("XML document has no root element")
	}

	signCtx := dsig.NewDefaultSigningContext(&pemKeyStore{key: rsaKey, cert: pair.Certificate[0]})
	signedRoot, err := signCtx.SignEnveloped(root)
	if err != nil {
		return nil, fmt.Errorf("signing document: %w", err)
	}

	signedDoc := etree.NewDocument()
	signedDoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	signedDoc.SetRoot(signedRoot)
	return signedDoc.WriteToBytes()
}
