package config

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	AuthCertificate = "Certificate"
	AuthOAuth2      = "OAuth2"
)

const (
	sandboxBaseURL    = "https://api.anaf.ro/test/FCTEL/rest"
	productionBaseURL = "https://api.anaf.ro/prod/FCTEL/rest"
)

type EFacturaConfig struct {
	Env           string `yaml:"env" env-default:"local"`
	HTTPServer    `yaml:"http_server"`
	TransactionDB `yaml:"transaction_db"`
	LogConfig     `yaml:"log_config"`
	KafkaService  `yaml:"kafka-service"`
	Anaf          AnafConfig      `yaml:"anaf"`
	Scheduler     SchedulerConfig `yaml:"scheduler"`
}

type HTTPServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env-default:"8080"`
}

type TransactionDB struct {
	Dsn            string `yaml:"dsn" env:"EFACTURA_DB_DSN"`
	MigrationsPath string `yaml:"migrations_path" env-default:"migrations"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env-default:"info"`
	LogFormat string `yaml:"log_format" env-default:"json"`
	LogOutput string `yaml:"log_output" env-default:"stdout"`
}

type KafkaService struct {
	Host  string `yaml:"host"`
	Port  string `yaml:"port"`
	Topic string `yaml:"topic" env-default:"efactura-transaction-events"`
}

type SchedulerConfig struct {
	RetryInterval time.Duration `yaml:"retry_interval" env-default:"10m"`
	WorkerBuffer  int           `yaml:"worker_buffer" env-default:"64"`
}

// AnafConfig is the Settings singleton of the integration. Credential
// fields hold AES-256-GCM ciphertext (base64); plaintext is only ever
// produced by the decrypt-on-read accessors and never stored back.
type AnafConfig struct {
	SandboxMode       bool          `yaml:"sandbox_mode" env-default:"true"`
	AuthMethod        string        `yaml:"auth_method" env:"EFACTURA_AUTH_METHOD"`
	ClientCertificate string        `yaml:"client_certificate" env:"EFACTURA_CLIENT_CERTIFICATE"`
	PrivateKey        string        `yaml:"private_key" env:"EFACTURA_PRIVATE_KEY"`
	OAuthClientID     string        `yaml:"oauth_client_id" env:"EFACTURA_OAUTH_CLIENT_ID"`
	OAuthClientSecret string        `yaml:"oauth_client_secret" env:"EFACTURA_OAUTH_CLIENT_SECRET"`
	UploadTimeout     time.Duration `yaml:"upload_timeout" env-default:"10s"`
	StatusTimeout     time.Duration `yaml:"status_timeout" env-default:"8s"`

	credentialKey []byte
}

// BaseURL is derived from the sandbox flag, never stored, so the flag and
// the URL cannot drift apart.
func (c *AnafConfig) BaseURL() string {
	if c.SandboxMode {
		return sandboxBaseURL
	}
	return productionBaseURL
}

// Validate rejects incomplete credential sets for the selected
// authentication method. Called at load time and again before submission.
func (c *AnafConfig) Validate() error {
	switch c.AuthMethod {
	case AuthCertificate:
		if c.ClientCertificate == "" || c.PrivateKey == "" {
			return errors.New("client certificate and private key are required for certificate authentication")
		}
	case AuthOAuth2:
		if c.OAuthClientID == "" || c.OAuthClientSecret == "" {
			return errors.New("OAuth client ID and secret are required for OAuth2 authentication")
		}
	default:
		return fmt.Errorf("invalid authentication method: %q", c.AuthMethod)
	}
	if len(c.credentialKey) == 0 {
		return errors.New("credential key is not set")
	}
	return nil
}

// SetCredentialKey installs the AES key used by the decrypt-on-read
// accessors. The key must be 16, 24 or 32 bytes.
func (c *AnafConfig) SetCredentialKey(key []byte) error {
	if _, err := aes.NewCipher(key); err != nil {
		return fmt.Errorf("invalid credential key: %w", err)
	}
	c.credentialKey = key
	return nil
}

func (c *AnafConfig) DecryptedCertificate() ([]byte, error) {
	return c.decrypt(c.ClientCertificate)
}

func (c *AnafConfig) DecryptedPrivateKey() ([]byte, error) {
	return c.decrypt(c.PrivateKey)
}

func (c *AnafConfig) OAuthCredentials() (clientID, clientSecret string, err error) {
	secret, err := c.decrypt(c.OAuthClientSecret)
	if err != nil {
		return "", "", err
	}
	return c.OAuthClientID, string(secret), nil
}

func (c *AnafConfig) decrypt(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("credential is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding credential: %w", err)
	}
	block, err := aes.NewCipher(c.credentialKey)
	if err != nil {
		return nil, fmt.Errorf("loading credential key: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, errors.New("credential ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting credential: %w", err)
	}
	return plaintext, nil
}

func MustLoad() *EFacturaConfig {

	// Processing env config variable and file
	configPath := os.Getenv("EFACTURA_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("EFACTURA_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	// YAML to struct object
	var cfg EFacturaConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	key, err := base64.StdEncoding.DecodeString(os.Getenv("EFACTURA_CREDENTIAL_KEY"))
	if err != nil {
		log.Fatalf("failed to decode EFACTURA_CREDENTIAL_KEY: %v", err)
	}
	if err := cfg.Anaf.SetCredentialKey(key); err != nil {
		log.Fatalf("failed to install credential key: %v", err)
	}

	if err := cfg.Anaf.Validate(); err != nil {
		log.Fatalf("invalid e-Factura settings: %v", err)
	}

	return &cfg
}
