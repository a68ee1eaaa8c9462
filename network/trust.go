package network

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/MixinNetwork/telemetry/config"
)

// TrustPolicy decides which server certificates a client accepts. It is
// fixed when the dialer is built and never changes for its sessions.
type TrustPolicy struct {
	insecure bool
	roots    *x509.CertPool
}

// InsecureTrust accepts any server certificate without checking chain,
// name or validity. It exists for local development and tests only.
func InsecureTrust() *TrustPolicy {
	return &TrustPolicy{insecure: true}
}

func LoadAuthorityTrust(path string) (*TrustPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(ErrConfig, "os.ReadFile(%s) => %w", path, err)
	}
	return ParseAuthorityTrust(data)
}

// ParseAuthorityTrust accepts PEM encoded certificates, or a single DER one.
func ParseAuthorityTrust(data []byte) (*TrustPolicy, error) {
	certs, err := parseCertificates(data)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return &TrustPolicy{roots: pool}, nil
}

func (p *TrustPolicy) Insecure() bool {
	return p.insecure
}

func (p *TrustPolicy) String() string {
	if p.insecure {
		return "insecure"
	}
	return "authority"
}

func (p *TrustPolicy) ClientTLS(serverName string) *tls.Config {
	conf := &tls.Config{
		ServerName: serverName,
		NextProtos: []string{config.ProtocolName},
		MinVersion: tls.VersionTLS13,
	}
	if p.insecure {
		conf.InsecureSkipVerify = true
	} else {
		conf.RootCAs = p.roots
	}
	return conf
}

type Certificate struct {
	cert tls.Certificate
	leaf *x509.Certificate
	key  any
}

// GenerateCertificate creates a self-signed ECDSA certificate for this
// process only. It covers localhost, the loopback addresses and names.
func GenerateCertificate(names ...string) (*Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: config.DefaultServerName, Organization: []string{config.ProtocolName}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour * 24 * 365),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{config.DefaultServerName},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	for _, n := range names {
		if ip := net.ParseIP(n); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if n != "" && n != config.DefaultServerName {
			template.DNSNames = append(template.DNSNames, n)
		}
	}
	if len(names) > 0 && names[0] != "" {
		template.Subject.CommonName = names[0]
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Certificate{
		cert: tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf},
		leaf: leaf,
		key:  key,
	}, nil
}

func LoadCertificate(certPath, keyPath string) (*Certificate, error) {
	if certPath == "" || keyPath == "" {
		return nil, newError(ErrConfig, "certificate %q and key %q must be given together", certPath, keyPath)
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, newError(ErrConfig, "tls.LoadX509KeyPair(%s, %s) => %w", certPath, keyPath, err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, newError(ErrConfig, "x509.ParseCertificate(%s) => %w", certPath, err)
	}
	cert.Leaf = leaf
	return &Certificate{cert: cert, leaf: leaf, key: cert.PrivateKey}, nil
}

func (c *Certificate) Leaf() *x509.Certificate {
	return c.leaf
}

func (c *Certificate) ServerTLS() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{c.cert},
		NextProtos:   []string{config.ProtocolName},
		MinVersion:   tls.VersionTLS13,
	}
}

func (c *Certificate) CertificatePEM() []byte {
	var out []byte
	for _, der := range c.cert.Certificate {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	return out
}

func (c *Certificate) KeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(c.key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// WriteFiles stores the pair so it can be loaded by LoadCertificate and the
// certificate pinned by clients with LoadAuthorityTrust.
func (c *Certificate) WriteFiles(certPath, keyPath string) error {
	key, err := c.KeyPEM()
	if err != nil {
		return err
	}
	err = os.WriteFile(certPath, c.CertificatePEM(), 0644)
	if err != nil {
		return err
	}
	return os.WriteFile(keyPath, key, 0600)
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, newError(ErrConfig, "x509.ParseCertificate() => %w", err)
		}
		certs = append(certs, c)
	}
	if len(certs) > 0 {
		return certs, nil
	}
	certs, err := x509.ParseCertificates(data)
	if err != nil {
		return nil, newError(ErrConfig, "x509.ParseCertificates(%d) => %w", len(data), err)
	}
	if len(certs) == 0 {
		return nil, newError(ErrConfig, "no certificate found in %d bytes", len(data))
	}
	return certs, nil
}
