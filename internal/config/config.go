// Package config содержит логику чтения конфигурации платформы вознаграждений.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации платформы вознаграждений.
type Config struct {
	RunAddress           string `env:"RUN_ADDRESS"`
	DatabaseURI          string `env:"DATABASE_URI"`
	PricingSystemAddress string `env:"PRICING_SYSTEM_ADDRESS"`
	AuthSecret           string `env:"AUTH_SECRET"`
	MonthlyBudgetLimit   int64  `env:"MONTHLY_BUDGET_LIMIT"`
	BudgetWarningPercent int    `env:"BUDGET_WARNING_PERCENT"`
	BudgetHardLimit      bool   `env:"BUDGET_HARD_LIMIT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envPricingAddress := cfg.PricingSystemAddress
	envAuthSecret := cfg.AuthSecret
	envBudgetLimit := cfg.MonthlyBudgetLimit
	envWarningPercent := cfg.BudgetWarningPercent
	envHardLimit := cfg.BudgetHardLimit
	// Для булева поля нулевое значение неотличимо от явного false,
	// поэтому приоритет окружения определяется наличием переменной.
	_, envHardLimitSet := os.LookupEnv("BUDGET_HARD_LIMIT")

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.PricingSystemAddress, "p", "", "pricing system address")
	flag.StringVar(&cfg.AuthSecret, "s", "rewards-secret", "secret key for auth cookies")
	flag.Int64Var(&cfg.MonthlyBudgetLimit, "b", 100000, "monthly points budget per administrator")
	flag.IntVar(&cfg.BudgetWarningPercent, "w", 80, "budget usage percent that triggers a warning")
	flag.BoolVar(&cfg.BudgetHardLimit, "hard-limit", true, "reject awards that exceed the monthly budget")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envPricingAddress != "" {
		cfg.PricingSystemAddress = envPricingAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envBudgetLimit != 0 {
		cfg.MonthlyBudgetLimit = envBudgetLimit
	}
	if envWarningPercent != 0 {
		cfg.BudgetWarningPercent = envWarningPercent
	}
	if envHardLimitSet {
		cfg.BudgetHardLimit = envHardLimit
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.BudgetWarningPercent < 0 || cfg.BudgetWarningPercent > 100 {
		return nil, fmt.Errorf("budget warning percent out of range: %d", cfg.BudgetWarningPercent)
	}

	return cfg, nil
}
