package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	HTTP    HTTPConfig
	JWT     JWTConfig
	Graph   GraphConfig
	Storage StorageConfig
	Mail    MailConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env        string // development, staging, production
	Name       string
	BackendURL string // URL pública del backend (links en respuestas y proxies de archivos)
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig configuración para validar los tokens emitidos por el gateway de autenticación.
type JWTConfig struct {
	Secret string
	Issuer string
}

// GraphConfig credenciales de Microsoft Graph para el poller de correo.
type GraphConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	UserEmail    string // buzón a leer (application permissions)
}

// StorageConfig selección del backend de archivos.
type StorageConfig struct {
	UseCloudinary bool
	CloudName     string
	APIKey        string
	APISecret     string
	LocalDir      string // raíz del almacenamiento local cuando no se usa Cloudinary
}

// MailConfig límites del poller de correo. Los valores fuera de rango se ajustan al cargar.
type MailConfig struct {
	CheckIntervalMinutes int // mínimo 1
	MaxEmailsPerRun      int // 1..500
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo .env).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, MS_GRAPH_CLIENT_ID, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:        getString(v, "APP_ENV", "development"),
			Name:       getString(v, "APP_NAME", "freight-backoffice"),
			BackendURL: getString(v, "BACKEND_URL", "http://localhost:8080"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "freight_backoffice"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		JWT: JWTConfig{
			Secret: getString(v, "JWT_SECRET", ""),
			Issuer: getString(v, "JWT_ISSUER", "freight-backoffice"),
		},
		Graph: GraphConfig{
			ClientID:     getString(v, "MS_GRAPH_CLIENT_ID", ""),
			ClientSecret: getString(v, "MS_GRAPH_CLIENT_SECRET", ""),
			TenantID:     getString(v, "MS_GRAPH_TENANT_ID", ""),
			UserEmail:    getString(v, "MS_GRAPH_USER_EMAIL", ""),
		},
		Storage: StorageConfig{
			UseCloudinary: getBool(v, "USE_CLOUDINARY", false),
			CloudName:     getString(v, "CLOUDINARY_CLOUD_NAME", ""),
			APIKey:        getString(v, "CLOUDINARY_API_KEY", ""),
			APISecret:     getString(v, "CLOUDINARY_API_SECRET", ""),
			LocalDir:      getString(v, "STORAGE_LOCAL_DIR", "./media"),
		},
		Mail: MailConfig{
			CheckIntervalMinutes: getInt(v, "MAIL_CHECK_INTERVAL_MINUTES", 15),
			MaxEmailsPerRun:      getInt(v, "MAIL_MAX_EMAILS_PER_RUN", 50),
		},
	}

	cfg.Mail.clamp()
	return cfg, nil
}

// clamp fuerza los límites del poller: intervalo >= 1 minuto, 1..500 correos por corrida.
func (m *MailConfig) clamp() {
	if m.CheckIntervalMinutes < 1 {
		m.CheckIntervalMinutes = 1
	}
	if m.MaxEmailsPerRun < 1 {
		m.MaxEmailsPerRun = 1
	}
	if m.MaxEmailsPerRun > 500 {
		m.MaxEmailsPerRun = 500
	}
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
