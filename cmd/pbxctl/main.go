// Package main is the entry point for pbxctl, the interactive operator
// console for a pbxadmin server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/btafoya/pbxadmin/internal/client"
	"github.com/btafoya/pbxadmin/internal/console"
)

func main() {
	var (
		server   = flag.String("server", envOr("PBXADMIN_SERVER", "http://localhost:8080"), "pbxadmin server URL")
		email    = flag.String("email", os.Getenv("PBXADMIN_EMAIL"), "login email (or PBXADMIN_EMAIL)")
		password = flag.String("password", os.Getenv("PBXADMIN_PASSWORD"), "login password (or PBXADMIN_PASSWORD)")
		token    = flag.String("token", os.Getenv("PBXADMIN_TOKEN"), "session token, skips login (or PBXADMIN_TOKEN)")
	)
	flag.Parse()

	ctx := context.Background()
	c := client.New(*server)

	switch {
	case *token != "":
		c.SetToken(*token)
	case *email != "" && *password != "":
		if err := c.Login(ctx, *email, *password); err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "credentials required: pass --token, or --email and --password")
		os.Exit(1)
	}

	con := console.New(c, os.Stdin, os.Stdout)
	if err := con.RefreshAll(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "initial sync failed: %v\n", err)
		os.Exit(1)
	}

	// One-shot mode: execute the remaining arguments as a single command
	if flag.NArg() > 0 {
		line := ""
		for i, arg := range flag.Args() {
			if i > 0 {
				line += " "
			}
			line += arg
		}
		if _, err := con.Execute(ctx, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := con.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
