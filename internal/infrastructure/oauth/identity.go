package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-push-notify/internal/config"
	"github.com/go-push-notify/internal/domain"
)

// SigningIdentity is everything needed to mint an access token: who we are,
// what we ask for, and the key we sign with.
type SigningIdentity struct {
	ProjectID     string `json:"project_id"`
	ClientEmail   string `json:"client_email"`
	PrivateKeyPEM string `json:"private_key"`
	TokenURI      string `json:"token_uri"`
	Scope         string `json:"-"`
}

// String never includes the private key.
func (id SigningIdentity) String() string {
	return fmt.Sprintf("SigningIdentity{project=%s iss=%s}", id.ProjectID, id.ClientEmail)
}

// Validate checks that the identity is usable without touching the network.
func (id SigningIdentity) Validate() error {
	switch {
	case id.ClientEmail == "":
		return &domain.ConfigurationError{Field: "client_email"}
	case id.PrivateKeyPEM == "":
		return &domain.ConfigurationError{Field: "private_key"}
	case id.TokenURI == "":
		return &domain.ConfigurationError{Field: "token_uri"}
	case id.Scope == "":
		return &domain.ConfigurationError{Field: "scope"}
	}
	return nil
}

// LoadIdentity builds a SigningIdentity from discrete settings, an inline
// service-account JSON document, or a JSON file, in that order of preference.
func LoadIdentity(cfg config.FCM) (SigningIdentity, error) {
	var id SigningIdentity
	switch {
	case cfg.ProjectID != "" && cfg.ClientEmail != "" && cfg.PrivateKey != "":
		id = SigningIdentity{
			ProjectID:     cfg.ProjectID,
			ClientEmail:   cfg.ClientEmail,
			PrivateKeyPEM: cfg.PrivateKey,
		}
	case cfg.ServiceAccountJSON != "":
		if err := json.Unmarshal([]byte(cfg.ServiceAccountJSON), &id); err != nil {
			return SigningIdentity{}, &domain.ConfigurationError{Field: "service_account_json", Err: errors.New("invalid JSON")}
		}
	case cfg.ServiceAccountPath != "":
		raw, err := os.ReadFile(cfg.ServiceAccountPath)
		if err != nil {
			return SigningIdentity{}, &domain.ConfigurationError{Field: "service_account_json_path", Err: err}
		}
		if err := json.Unmarshal(raw, &id); err != nil {
			return SigningIdentity{}, &domain.ConfigurationError{Field: "service_account_json_path", Err: errors.New("invalid JSON")}
		}
	default:
		return SigningIdentity{}, &domain.ConfigurationError{Field: "service_account", Err: errors.New("no FCM service account configured")}
	}

	// Keys pasted into env vars usually carry literal \n sequences.
	id.PrivateKeyPEM = strings.ReplaceAll(id.PrivateKeyPEM, `\n`, "\n")
	if cfg.TokenURL != "" {
		id.TokenURI = cfg.TokenURL
	}
	id.Scope = cfg.Scope
	if id.ProjectID == "" {
		return SigningIdentity{}, &domain.ConfigurationError{Field: "project_id"}
	}
	return id, id.Validate()
}
