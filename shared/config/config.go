package config

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	private Private
}

type Public struct {
	Http       Http       `yaml:"http"`
	Storage    Storage    `yaml:"storage"`
	Pg         Pg         `yaml:"pg"`
	Events     Events     `yaml:"events"`
	Auth       Auth       `yaml:"auth"`
	Pagination Pagination `yaml:"pagination"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
	Log        Log        `yaml:"log"`
}

type Http struct {
	Addr               string        `yaml:"addr" validate:"required"`
	ReadHeaderTimeout  time.Duration `yaml:"read_header_timeout"`
	RequestTimeout     time.Duration `yaml:"request_timeout" validate:"required"`
	CorsAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	HTTPS              bool          `yaml:"https"`
	Playground         bool          `yaml:"playground"`
}

type Storage struct {
	Driver     string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	SqlitePath string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
}

type Pg struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Dbname  string `yaml:"dbname"`
	SSLMode string `yaml:"sslmode"`
}

type Events struct {
	Backend string `yaml:"backend" validate:"required,oneof=memory postgres"`
	Buffer  int    `yaml:"buffer" validate:"gte=1"`
	Channel string `yaml:"channel" validate:"required_if=Backend postgres"`
}

type Auth struct {
	BcryptCost int           `yaml:"bcrypt_cost" validate:"gte=4,lte=31"`
	TokenTTL   time.Duration `yaml:"token_ttl" validate:"gte=0"`
}

type Pagination struct {
	DefaultLimit int `yaml:"default_limit" validate:"gte=1"`
	MaxLimit     int `yaml:"max_limit" validate:"gtefield=DefaultLimit"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst float64 `yaml:"burst" validate:"gte=0"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Private struct {
	JwtKey      string `yaml:"jwt_key" validate:"required"`
	PgPassword  string `yaml:"pg_password"`
	DatabaseURL string `yaml:"database_url"`
}

func (s *Config) JwtKey() string {
	return s.private.JwtKey
}

func (s *Config) TokenTTL() time.Duration {
	return s.Public.Auth.TokenTTL
}

// PgConnString prefers database_url and falls back to the pg section.
func (s *Config) PgConnString() string {
	if s.private.DatabaseURL != "" {
		return s.private.DatabaseURL
	}
	pg := s.Public.Pg
	sslmode := pg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, s.private.PgPassword, pg.Dbname, sslmode)
}

func defaults() Public {
	return Public{
		Http: Http{
			Addr:              ":3000",
			ReadHeaderTimeout: 5 * time.Second,
			RequestTimeout:    15 * time.Second,
		},
		Storage: Storage{Driver: "postgres"},
		Pg:      Pg{Host: "127.0.0.1", Port: 5432, User: "postgres", Dbname: "postgres"},
		Events:  Events{Backend: "memory", Buffer: 64, Channel: "threed_events"},
		Auth:    Auth{BcryptCost: 10},
		Pagination: Pagination{
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		RateLimit: RateLimit{RPS: 20, Burst: 40},
		Log:       Log{Level: "info"},
	}
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)

	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file: " + err.Error())
	}
}

// applyEnv lets the usual deployment variables win over files.
func applyEnv(public *Public, private *Private) {
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			public.Http.Addr = ":" + port
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		if _, err := url.Parse(dsn); err == nil {
			private.DatabaseURL = dsn
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		private.JwtKey = secret
	}
}

func MustLoad(configFolder string) *Config {
	public := defaults()
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	applyEnv(&public, &private)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(public); err != nil {
		panic("invalid public config: " + err.Error())
	}
	if err := validate.Struct(private); err != nil {
		panic("invalid private config: " + err.Error())
	}

	return &Config{public, private}
}
