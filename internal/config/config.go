package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Service identifies which of the two services is being configured
type Service string

const (
	ServiceIssuer   Service = "issuer"
	ServiceVerifier Service = "verifier"
)

// AppName returns the name reported by the health endpoint
func (s Service) AppName() string {
	switch s {
	case ServiceIssuer:
		return "verifiedid-issuer"
	case ServiceVerifier:
		return "verifiedid-verifier"
	default:
		return string(s)
	}
}

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	LogFile               string        `env:"LOG_FILE"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=45s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	HandlerTimeout        time.Duration `env:"HANDLER_TIMEOUT,default=40s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBodySize    int64         `env:"MAX_REQUEST_BODY_SIZE,default=1048576"`
	MetricsEnabled        bool          `env:"METRICS_ENABLED,default=true"`

	// request tracking
	// RequestTTL = 0 keeps tracked requests for the lifetime of the process
	RequestTTL     time.Duration `env:"REQUEST_TTL,default=0s"`
	CallbackAPIKey string        `env:"CALLBACK_API_KEY"`

	// PublicBaseURL is the externally reachable URL of this service, used to build callback URLs
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	// app registration used for client credential token requests
	AzureTenantID     string `env:"AZURE_TENANT_ID"`
	AzureClientID     string `env:"AZURE_CLIENT_ID"`
	AzureClientSecret string `env:"AZURE_CLIENT_SECRET"`
	AuthorityHost     string `env:"AUTHORITY_HOST,default=https://login.microsoftonline.com"`

	// Verified ID request service
	VerifiedIDEndpoint  string        `env:"VERIFIED_ID_ENDPOINT,default=https://verifiedid.did.msidentity.com/v1.0/verifiableCredentials"`
	VerifiedIDScope     string        `env:"VERIFIED_ID_SCOPE,default=3db474b9-6a0c-4840-96ac-1fceb342124f/.default"`
	VerifiedIDAuthority string        `env:"VERIFIED_ID_AUTHORITY"`
	ClientName          string        `env:"CLIENT_NAME,default=Verified ID Demo"`
	CredentialType      string        `env:"CREDENTIAL_TYPE"`
	UpstreamTimeout     time.Duration `env:"UPSTREAM_TIMEOUT,default=30s"`

	// issuer settings
	CredentialManifestURL string        `env:"CREDENTIAL_MANIFEST_URL"`
	IssuancePinLength     int           `env:"ISSUANCE_PIN_LENGTH,default=0"`
	GraphEndpoint         string        `env:"GRAPH_ENDPOINT,default=https://graph.microsoft.com/v1.0"`
	GraphScope            string        `env:"GRAPH_SCOPE,default=https://graph.microsoft.com/.default"`
	IDTokenJWKSURL        string        `env:"ID_TOKEN_JWKS_URL"`
	JWKCacheMinRefresh    time.Duration `env:"JWK_CACHE_MIN_REFRESH,default=15m"`
	JWKCacheMaxRefresh    time.Duration `env:"JWK_CACHE_MAX_REFRESH,default=12h"`

	// verifier settings
	AcceptedIssuers      []string `env:"ACCEPTED_ISSUERS,separator=|"`
	VerificationPurpose  string   `env:"VERIFICATION_PURPOSE,default=To prove your identity"`
	FaceCheckPhotoClaim  string   `env:"FACE_CHECK_PHOTO_CLAIM,default=photo"`
	FaceCheckThreshold   int      `env:"FACE_CHECK_THRESHOLD,default=70"`
	AllowRevoked         bool     `env:"ALLOW_REVOKED,default=false"`
	ValidateLinkedDomain bool     `env:"VALIDATE_LINKED_DOMAIN,default=true"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

const maxPinLength = 16

// LoadEnvFile loads variables from a dotenv file into the process environment.
// Variables that are already set are not overridden and a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig(service Service) (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg, service); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment, service Service) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.MaxRequestBodySize < 1 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be at least 1")
	}
	if cfg.RequestTTL < 0 {
		return fmt.Errorf("REQUEST_TTL cannot be negative")
	}

	required := map[string]string{
		"PUBLIC_BASE_URL":       cfg.PublicBaseURL,
		"AZURE_TENANT_ID":       cfg.AzureTenantID,
		"AZURE_CLIENT_ID":       cfg.AzureClientID,
		"AZURE_CLIENT_SECRET":   cfg.AzureClientSecret,
		"VERIFIED_ID_AUTHORITY": cfg.VerifiedIDAuthority,
		"CREDENTIAL_TYPE":       cfg.CredentialType,
	}

	switch service {
	case ServiceIssuer:
		required["CREDENTIAL_MANIFEST_URL"] = cfg.CredentialManifestURL
	case ServiceVerifier:
	default:
		return fmt.Errorf("unknown service: %s", service)
	}

	var missing []string
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if err := validateURL("PUBLIC_BASE_URL", cfg.PublicBaseURL); err != nil {
		return err
	}
	if err := validateURL("VERIFIED_ID_ENDPOINT", cfg.VerifiedIDEndpoint); err != nil {
		return err
	}
	if err := validateURL("AUTHORITY_HOST", cfg.AuthorityHost); err != nil {
		return err
	}

	if !strings.HasPrefix(cfg.VerifiedIDAuthority, "did:") {
		return fmt.Errorf("VERIFIED_ID_AUTHORITY must be a DID, got %q", cfg.VerifiedIDAuthority)
	}

	if service == ServiceIssuer {
		if err := validateURL("CREDENTIAL_MANIFEST_URL", cfg.CredentialManifestURL); err != nil {
			return err
		}
		if err := validateURL("GRAPH_ENDPOINT", cfg.GraphEndpoint); err != nil {
			return err
		}
		if cfg.IssuancePinLength < 0 || cfg.IssuancePinLength > maxPinLength {
			return fmt.Errorf("ISSUANCE_PIN_LENGTH must be between 0 and %d, got %d", maxPinLength, cfg.IssuancePinLength)
		}
		if cfg.IDTokenJWKSURL != "" {
			if err := validateURL("ID_TOKEN_JWKS_URL", cfg.IDTokenJWKSURL); err != nil {
				return err
			}
		}
	}

	if service == ServiceVerifier {
		if cfg.FaceCheckThreshold < 50 || cfg.FaceCheckThreshold > 100 {
			return fmt.Errorf("FACE_CHECK_THRESHOLD must be between 50 and 100, got %d", cfg.FaceCheckThreshold)
		}
		for _, issuer := range cfg.AcceptedIssuers {
			if !strings.HasPrefix(issuer, "did:") {
				return fmt.Errorf("ACCEPTED_ISSUERS entries must be DIDs, got %q", issuer)
			}
		}
	}

	return nil
}

// TokenURL returns the OAuth 2.0 token endpoint for the configured tenant
func (cfg *ServerEnvironment) TokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(cfg.AuthorityHost, "/"), cfg.AzureTenantID)
}

// CallbackURL returns the absolute URL the platform should call for the given path
func (cfg *ServerEnvironment) CallbackURL(path string) string {
	return strings.TrimRight(cfg.PublicBaseURL, "/") + path
}

func validateURL(name, value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, value)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", name, value)
	}
	return nil
}
