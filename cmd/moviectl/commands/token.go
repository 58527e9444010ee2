package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/movie-scores/internal/auth"
	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/repository"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Mint a bearer token for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := repository.New(st).Users.GetByUsername(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("user %q is not provisioned", args[0])
			}
			if err != nil {
				return err
			}

			if ttl <= 0 {
				ttl = time.Duration(cfg.JWTTTLSecs) * time.Second
			}
			tok, err := auth.Issuer{Secret: []byte(cfg.JWTSecret), TTL: ttl}.Issue(user.Username, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default DSMOVIE_JWT_TTL_SECS)")
	return cmd
}
