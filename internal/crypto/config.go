package crypto

import (
	"fmt"

	"github.com/boarsvc/boar/internal/config"
)

// EncryptCredential encrypts the sensitive fields of a Credential (LLM API
// key, service API key, webhook secret) in-place and returns the modified
// value. If key is nil, the credential is returned unchanged (no-op).
func EncryptCredential(cred config.Credential, key []byte) (config.Credential, error) {
	if key == nil {
		return cred, nil
	}

	var err error
	if cred.LLMAPIKey, err = Encrypt(cred.LLMAPIKey, key); err != nil {
		return cred, fmt.Errorf("encrypt llm_api_key: %w", err)
	}
	if cred.ServiceAPIKey, err = Encrypt(cred.ServiceAPIKey, key); err != nil {
		return cred, fmt.Errorf("encrypt api_key: %w", err)
	}
	if cred.WebhookSecret, err = Encrypt(cred.WebhookSecret, key); err != nil {
		return cred, fmt.Errorf("encrypt webhook_secret: %w", err)
	}
	return cred, nil
}

// DecryptCredential decrypts the sensitive fields of a Credential in-place
// and returns the modified value. If key is nil, or a given field does not
// carry the "enc:" prefix, that field is left as-is.
func DecryptCredential(cred config.Credential, key []byte) (config.Credential, error) {
	if key == nil {
		return cred, nil
	}

	var err error
	if cred.LLMAPIKey, err = Decrypt(cred.LLMAPIKey, key); err != nil {
		return cred, fmt.Errorf("decrypt llm_api_key: %w", err)
	}
	if cred.ServiceAPIKey, err = Decrypt(cred.ServiceAPIKey, key); err != nil {
		return cred, fmt.Errorf("decrypt api_key: %w", err)
	}
	if cred.WebhookSecret, err = Decrypt(cred.WebhookSecret, key); err != nil {
		return cred, fmt.Errorf("decrypt webhook_secret: %w", err)
	}
	return cred, nil
}
