package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hydronom-sim/internal/auth"
	"hydronom-sim/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		secret  string
		vehicle string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a vehicle",
		Long:  "token prints an HS256 JWT scoped for telemetry writes, for use with endpoints that verify signed tokens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := auth.NewJWTSource(secret, vehicle, ttl)
			if err != nil {
				return err
			}
			tok, err := src.Token()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&secret, "secret", "", "HS256 signing secret")
	f.StringVar(&vehicle, "vehicle", config.DefaultVehicleID, "Vehicle identifier used as subject")
	f.DurationVar(&ttl, "ttl", config.DefaultTokenTTL, "Token lifetime")
	cmd.MarkFlagRequired("secret")
	return cmd
}
