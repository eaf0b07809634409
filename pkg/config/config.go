// Package config lee la configuración del shell CLI vía Viper (variables de
// entorno y opcionalmente archivo .env). El núcleo de facturación no lee
// configuración: sus reglas y formatos soportados son constantes compiladas.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del ejecutable.
type Config struct {
	App AppConfig
	Log LogConfig
}

// AppConfig configuración general.
type AppConfig struct {
	Env          string // development, staging, production
	Name         string
	TargetFormat string // formato destino por defecto del comando convert
}

// LogConfig configuración de logging.
type LogConfig struct {
	Level string // trace, debug, info, warn, error
}

// Load lee la configuración desde variables de entorno, con prioridad sobre
// el archivo .env si existe. Nombres esperados: APP_ENV, APP_NAME,
// LOG_LEVEL, EINVOICE_TARGET_FORMAT.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{
		App: AppConfig{
			Env:          getString(v, "APP_ENV", "development"),
			Name:         getString(v, "APP_NAME", "einvoice-es"),
			TargetFormat: getString(v, "EINVOICE_TARGET_FORMAT", "facturae_3.2.2"),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
	}, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}
