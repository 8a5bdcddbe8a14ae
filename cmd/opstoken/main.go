// Command opstoken mints an operator API token from the service config.
//
//	opstoken -sub alice -role operator
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"retell-pos-bridge/internal/auth"
	"retell-pos-bridge/internal/config"
	"retell-pos-bridge/internal/rbac"

	"github.com/joho/godotenv"
)

func main() {
	sub := flag.String("sub", "", "operator name (token subject)")
	role := flag.String("role", rbac.RoleOperator, "operator or admin")
	flag.Parse()

	_ = godotenv.Load()

	if *sub == "" || !rbac.IsKnownRole(*role) {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	m, err := auth.NewManager(cfg.Auth)
	if err != nil {
		slog.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	tok, err := m.IssueAccessToken(time.Now(), *sub, *role)
	if err != nil {
		slog.Error("token issuance failed", "err", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
