// Command keybox-server stores encrypted keybox vault collections and
// serves them over gRPC and HTTP.
//
// Usage:
//
//	keybox-server [-c config.json] [-a :50051] [-w :8080] [-m postgres|memory|s3] ...
//	keybox-server token -sub <vault> [-ttl 720h] [-s secret]
//
// The token subcommand prints an access token for the vault namespace
// <vault>, signed with the configured secret.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/keybox/internal/flagx"
	"github.com/dmitrijs2005/keybox/internal/server"
	"github.com/dmitrijs2005/keybox/internal/server/auth"
	"github.com/dmitrijs2005/keybox/internal/server/blobs"
	"github.com/dmitrijs2005/keybox/internal/server/config"
)

func main() {
	args := os.Args[1:]

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if len(args) > 0 && args[0] == "token" {
		if err := printToken(os.Stdout, cfg, args[1:]); err != nil {
			log.Fatalf("token: %v", err)
		}
		return
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func printToken(w io.Writer, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sub := fs.String("sub", "", "vault namespace")
	ttl := fs.Duration("ttl", cfg.AccessTokenValidityDuration, "token lifetime")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-sub", "-ttl"})); err != nil {
		return err
	}

	if err := blobs.ValidateName(*sub); err != nil {
		return fmt.Errorf("-sub: %w", err)
	}
	if *ttl <= 0 {
		return fmt.Errorf("-ttl must be positive, got %s", *ttl)
	}

	tok, err := auth.GenerateToken(*sub, []byte(cfg.SecretKey), *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(*ttl).Format(time.RFC3339))
	return nil
}
