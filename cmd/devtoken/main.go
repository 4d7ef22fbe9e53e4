// devtoken prints a signed JWT for local testing of the API.
//
// Usage: go run ./cmd/devtoken -user u-1 -role MANAGER
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/SafetyDady/smart-erp-backend/internal/domain/entity"
	"github.com/SafetyDady/smart-erp-backend/pkg/config"
	"github.com/SafetyDady/smart-erp-backend/pkg/jwt"
)

func main() {
	user := flag.String("user", "dev-user", "user id (sub claim)")
	role := flag.String("role", string(entity.RoleManager), "OWNER, MANAGER or STAFF")
	minutes := flag.Int("exp", 0, "lifetime in minutes, 0 = JWT_EXPIRATION_MINUTES")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.IsProduction() {
		fmt.Fprintln(os.Stderr, "refusing to mint tokens with production settings")
		os.Exit(1)
	}
	r, ok := entity.ParseRole(*role)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}
	exp := *minutes
	if exp <= 0 {
		exp = cfg.JWT.Expiration
	}
	token, err := jwt.Generate(cfg.JWT.Secret, *user, string(r), cfg.JWT.Issuer, exp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
