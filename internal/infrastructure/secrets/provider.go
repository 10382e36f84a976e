// Package secrets resolves per-subscription credentials from the
// configuration file and the process environment.
package secrets

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/leadscore/pkg/errors"
)

// EnvPrefix prefixes secret environment variables. The secret
// "openai-apikey-123-ABC" is read from LEADSCORE_SECRET_OPENAI_APIKEY_123_ABC.
const EnvPrefix = "LEADSCORE_SECRET"

// ConfigProvider implements the scoring SecretProvider port. Environment
// variables take precedence over the configured map. Names are case
// insensitive.
type ConfigProvider struct {
	v *viper.Viper
}

func NewConfigProvider(secrets map[string]string) *ConfigProvider {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for name, value := range secrets {
		v.SetDefault(strings.ToLower(name), value)
	}
	return &ConfigProvider{v: v}
}

// GetSecret returns the named secret, or a SecretNotFound error when it is
// unset or blank.
func (p *ConfigProvider) GetSecret(_ context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.InputError("secret name is required")
	}
	value := strings.TrimSpace(p.v.GetString(strings.ToLower(name)))
	if value == "" {
		return "", errors.New(errors.ErrCodeSecretNotFound, "secret not found").WithDetail(name)
	}
	return value, nil
}

//Personal.AI order the ending
