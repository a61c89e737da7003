package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	knownLogLevels = []string{"none", "error", "warn", "warning", "info", "debug"}
	knownAuthTypes = []string{"none", "api_key", "bearer", "basic", "ntlm", "oauth2"}
)

func isValidEnumValue(value string, allowedValues []string) bool {
	checkValue := strings.ToLower(value)
	for _, allowed := range allowedValues {
		if checkValue == allowed {
			return true
		}
	}
	return false
}

// ValidateConfig checks every section of the loaded configuration and reports
// all problems at once. Step templates are not checked here; the registry
// validates each one as it is added, so there is a single set of rules.
func ValidateConfig(cfg *Config) error {
	var allErrors []string
	allErrors = append(allErrors, validateLoggingConfig("Config.Logging", &cfg.Logging)...)
	allErrors = append(allErrors, validateHTTPConfig("Config.HTTP", &cfg.HTTP)...)
	allErrors = append(allErrors, validateAuthConfig("Config.Auth", &cfg.Auth)...)
	allErrors = append(allErrors, validateChainNames("Config.Chains", cfg.Chains)...)
	if len(allErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(allErrors, "\n"))
	}
	return nil
}

func validateLoggingConfig(prefix string, cfg *LoggingConfig) []string {
	var errs []string
	if !isValidEnumValue(cfg.Level, knownLogLevels) {
		errs = append(errs, fmt.Sprintf("- %s.Level: invalid log level '%s', must be one of %v", prefix, cfg.Level, knownLogLevels))
	}
	return errs
}

func validateHTTPConfig(prefix string, cfg *HTTPConfig) []string {
	var errs []string
	if cfg.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("- %s.TimeoutSeconds: must be at least 1", prefix))
	}
	if cfg.Proxy != "" {
		parsedURL, err := url.ParseRequestURI(cfg.Proxy)
		if err != nil {
			errs = append(errs, fmt.Sprintf("- %s.Proxy: invalid URL format: %v", prefix, err))
		} else if scheme := strings.ToLower(parsedURL.Scheme); scheme != "http" && scheme != "https" && scheme != "socks5" {
			errs = append(errs, fmt.Sprintf("- %s.Proxy: invalid proxy scheme '%s', must be http, https, or socks5", prefix, parsedURL.Scheme))
		}
	}
	return errs
}

func validateAuthConfig(prefix string, cfg *AuthConfig) []string {
	var errs []string
	authType := strings.ToLower(cfg.Type)
	if !isValidEnumValue(authType, knownAuthTypes) {
		errs = append(errs, fmt.Sprintf("- %s.Type: invalid auth type '%s', must be one of %v", prefix, cfg.Type, knownAuthTypes))
		return errs
	}
	required := map[string][]string{
		"api_key": {"api_key"},
		"bearer":  {"token"},
		"basic":   {"username", "password"},
		"ntlm":    {"username", "password"},
		"oauth2":  {"client_id", "client_secret", "token_url"},
	}
	if fields, needed := required[authType]; needed {
		if cfg.Credentials == nil {
			errs = append(errs, fmt.Sprintf("- %s.Credentials: map is required for auth type '%s'", prefix, authType))
		} else {
			for _, field := range fields {
				if v, ok := cfg.Credentials[field]; !ok || v == "" {
					errs = append(errs, fmt.Sprintf("- %s.Credentials: missing or empty required key '%s' for auth type '%s'", prefix, field, authType))
				}
			}
		}
	}
	return errs
}

func validateChainNames(prefix string, chains []ChainConfig) []string {
	var errs []string
	seen := make(map[string]struct{}, len(chains))
	for i, chain := range chains {
		if strings.TrimSpace(chain.Name) == "" {
			errs = append(errs, fmt.Sprintf("- %s[%d].Name: is required", prefix, i))
			continue
		}
		if _, dup := seen[chain.Name]; dup {
			errs = append(errs, fmt.Sprintf("- %s[%d].Name: duplicate chain name '%s'", prefix, i, chain.Name))
		}
		seen[chain.Name] = struct{}{}
	}
	return errs
}
