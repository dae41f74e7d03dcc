package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath = ".env"

	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	PlanFree    = "free"
	PlanPremium = "premium"
)

type Config struct {
	Env    string
	DB     DB
	Server Server
	Auth   Auth
	Plans  Plans
}

type DB struct {
	DatabaseURI string
	Migrations  string
}

type Server struct {
	RunAddress string
}

type Auth struct {
	Secret string
}

// PlanLimits are the feature-gate limits derived from a subscription plan.
// A CookwareLimit of zero or less means unlimited.
type PlanLimits struct {
	CookwareLimit   int
	CustomLocations bool
}

type Plans map[string]PlanLimits

// Limits returns the limits for plan, falling back to the free plan for
// unknown plan names.
func (p Plans) Limits(plan string) PlanLimits {
	if l, ok := p[plan]; ok {
		return l
	}
	return p[PlanFree]
}

func MustLoad() *Config {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetDefault("run_address", ":8080")
	viper.SetDefault("app_env", EnvLocal)
	viper.SetDefault("migrations_path", "migrations")
	viper.SetDefault("free_cookware_limit", 10)
	viper.SetDefault("premium_cookware_limit", 100)

	secret := viper.GetString("secret")
	if secret == "" {
		log.Fatalln("SECRET must be set")
	}

	return &Config{
		Env: viper.GetString("app_env"),
		DB: DB{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: Server{RunAddress: viper.GetString("run_address")},
		Auth:   Auth{Secret: secret},
		Plans: Plans{
			PlanFree: {
				CookwareLimit:   viper.GetInt("free_cookware_limit"),
				CustomLocations: false,
			},
			PlanPremium: {
				CookwareLimit:   viper.GetInt("premium_cookware_limit"),
				CustomLocations: true,
			},
		},
	}
}
