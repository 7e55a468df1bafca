// Command token issues an access token for a user id, signed with
// JWT_SECRET.  Accounts are managed outside this service; door staff and
// box office tooling use this to obtain bearer tokens.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-ticketing/internal/utils"
)

func main() {
	_ = godotenv.Load()

	userID := flag.Uint64("user", 0, "user id (required)")
	role := flag.String("role", utils.RoleCustomer, "CUSTOMER or OWNER")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logrus.Fatal("JWT_SECRET is not set")
	}
	if *userID == 0 {
		flag.Usage()
		os.Exit(2)
	}
	r := strings.ToUpper(*role)
	if r != utils.RoleCustomer && r != utils.RoleOwner {
		logrus.Fatalf("unknown role %q", *role)
	}

	tok, err := utils.NewAccessToken(secret, *userID, r, *ttl, time.Now())
	if err != nil {
		logrus.WithError(err).Fatal("sign token")
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
