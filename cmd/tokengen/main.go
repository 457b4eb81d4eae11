// Command tokengen mints a caller token accepted by the credrec server.
//
// Usage:
//
//	tokengen -caller issuer-a -ttl 1h
//
// The signing key is read from -key or CALLER_TOKEN_KEY.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	jwttoken "credrec/internal/jwt_token"
	"credrec/pkg/domain"
)

func main() {
	_ = godotenv.Load()

	caller := flag.String("caller", "", "caller identity placed in the token subject")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	key := flag.String("key", os.Getenv("CALLER_TOKEN_KEY"), "HMAC signing key")
	flag.Parse()

	if *key == "" {
		fmt.Fprintln(os.Stderr, "tokengen: a signing key is required (-key or CALLER_TOKEN_KEY)")
		os.Exit(2)
	}

	svc := jwttoken.NewJWTService(*key, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
	token, err := svc.GenerateCallerToken(domain.Caller(*caller), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
