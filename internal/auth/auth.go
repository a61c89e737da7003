package auth

import (
	"fmt"
	"net/http"

	"reqchain/internal/util"
)

// ApplyHeaders sets request headers for authentication types that use them
// directly. It handles "none", "api_key", "bearer", and "basic".
// NTLM and OAuth2 are handled during client creation.
func ApplyHeaders(req *http.Request, authType string, credentials map[string]string) error {
	switch authType {
	case "", "none":
		return nil
	case "api_key":
		key := credentials["api_key"]
		if key == "" {
			return fmt.Errorf("api_key authentication selected, but 'api_key' not found in credentials")
		}
		req.Header.Set("Authorization", "Bearer "+util.ExpandEnv(key))
	case "bearer":
		token := credentials["token"]
		if token == "" {
			return fmt.Errorf("bearer authentication selected, but 'token' not found in credentials")
		}
		req.Header.Set("Authorization", "Bearer "+util.ExpandEnv(token))
	case "basic":
		username, ok1 := credentials["username"]
		password, ok2 := credentials["password"]
		if !ok1 || !ok2 {
			return fmt.Errorf("basic authentication selected, but 'username' or 'password' not found in credentials")
		}
		req.SetBasicAuth(util.ExpandEnv(username), util.ExpandEnv(password))
	case "ntlm":
		// The ntlmssp transport expects initial basic auth credentials.
		username, ok1 := credentials["username"]
		password, ok2 := credentials["password"]
		if !ok1 || !ok2 {
			return fmt.Errorf("ntlm authentication selected, but 'username' or 'password' not found in credentials")
		}
		req.SetBasicAuth(util.ExpandEnv(username), util.ExpandEnv(password))
	case "oauth2":
		// Token injection happens inside the oauth2 client transport.
		return nil
	default:
		return fmt.Errorf("unsupported authentication type configured: %s", authType)
	}
	return nil
}
