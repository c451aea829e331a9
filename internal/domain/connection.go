package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Platform identifies an ad network a user can connect
type Platform string

const (
	PlatformGoogle    Platform = "google"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformSnapchat  Platform = "snapchat"
)

// Platforms lists every supported ad network in display order
var Platforms = []Platform{
	PlatformGoogle,
	PlatformFacebook,
	PlatformInstagram,
	PlatformTikTok,
	PlatformSnapchat,
}

// ParsePlatform validates a platform name coming from the outside world
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Platforms {
		if p == known {
			return p, nil
		}
	}
	return "", NewError(KindInvalidInput, "parse platform", fmt.Errorf("unsupported platform %q", name))
}

// ConnectionStatus is the lifecycle state of a platform connection
type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "active"
	ConnectionRevoked ConnectionStatus = "revoked"
)

// PlatformConnection is a user's link to one ad platform
type PlatformConnection struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	PlatformName Platform         `json:"platform_name"`
	Credentials  Credentials      `json:"-"`
	Status       ConnectionStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

// CredentialKind tags which credential variant is populated
type CredentialKind string

const (
	CredentialPassword   CredentialKind = "password"
	CredentialOAuthToken CredentialKind = "oauth_token"
)

// Credentials is the credential set handed over by the connect form.
// Only the fields of the tagged Kind may be set; the core never reads them
// beyond validation.
type Credentials struct {
	Kind        CredentialKind `json:"kind" bson:"kind"`
	Email       string         `json:"email,omitempty" bson:"email,omitempty"`
	Password    string         `json:"password,omitempty" bson:"password,omitempty"`
	AccessToken string         `json:"access_token,omitempty" bson:"access_token,omitempty"`
	AccountID   string         `json:"account_id,omitempty" bson:"account_id,omitempty"`
}

type passwordCredentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type oauthTokenCredentials struct {
	AccessToken string `validate:"required"`
	AccountID   string `validate:"omitempty,max=64"`
}

var validate = validator.New()

// Validate checks the credential variant before anything is persisted.
// An untagged set is classified by which fields are populated.
func (c *Credentials) Validate() error {
	if c.Kind == "" {
		switch {
		case c.AccessToken != "":
			c.Kind = CredentialOAuthToken
		case c.Email != "" || c.Password != "":
			c.Kind = CredentialPassword
		}
	}

	var err error
	switch c.Kind {
	case CredentialPassword:
		if c.AccessToken != "" || c.AccountID != "" {
			err = fmt.Errorf("password credentials must not carry token fields")
			break
		}
		err = validate.Struct(passwordCredentials{Email: c.Email, Password: c.Password})
	case CredentialOAuthToken:
		if c.Email != "" || c.Password != "" {
			err = fmt.Errorf("token credentials must not carry login fields")
			break
		}
		err = validate.Struct(oauthTokenCredentials{AccessToken: c.AccessToken, AccountID: c.AccountID})
	case "":
		err = fmt.Errorf("credentials are empty")
	default:
		err = fmt.Errorf("unknown credential kind %q", c.Kind)
	}
	if err != nil {
		return NewError(KindInvalidInput, "validate credentials", err)
	}
	return nil
}
