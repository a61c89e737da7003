package config

// Config is the root of the YAML configuration file.
type Config struct {
	Logging   LoggingConfig     `yaml:"logging"`
	HTTP      HTTPConfig        `yaml:"http"`
	Auth      AuthConfig        `yaml:"auth"`
	Variables map[string]string `yaml:"variables"`
	Chains    []ChainConfig     `yaml:"chains"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HTTPConfig holds transport settings shared by every request.
type HTTPConfig struct {
	TimeoutSeconds int               `yaml:"timeout_seconds,omitempty"`
	TLSSkipVerify  bool              `yaml:"tls_skip_verify,omitempty"`
	ForceHTTP1     bool              `yaml:"force_http1,omitempty"`
	Proxy          string            `yaml:"proxy,omitempty"`
	CookieJar      bool              `yaml:"cookie_jar,omitempty"`
	DefaultHeaders map[string]string `yaml:"default_headers,omitempty"`
}

// AuthConfig selects how outgoing requests authenticate. Credential values
// may reference environment variables as $NAME, ${NAME}, or %NAME%.
type AuthConfig struct {
	Type        string            `yaml:"type"`
	Credentials map[string]string `yaml:"credentials"`
}

// ChainConfig defines one chain: a named ordered sequence of request steps.
type ChainConfig struct {
	Name  string       `yaml:"name"`
	Steps []StepConfig `yaml:"steps"`
}

// StepConfig is the YAML shape of a single request template.
type StepConfig struct {
	Name    string            `yaml:"name,omitempty"`
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`
	Extract *ExtractConfig    `yaml:"extract,omitempty"`
}

// ExtractConfig binds a response-body path to a variable name.
type ExtractConfig struct {
	Path     string `yaml:"path"`
	Variable string `yaml:"variable"`
}
