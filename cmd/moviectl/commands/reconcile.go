package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/movie-scores/internal/domain"
	"github.com/Clark-Hu/movie-scores/internal/repository"
	"github.com/Clark-Hu/movie-scores/internal/scoring"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute movie aggregates from stored scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			repo := repository.New(st)
			r := scoring.NewReconciler(
				scoring.NewRepositoryTransactor(repo),
				repo.Movies,
				domain.ScoreRange{Min: cfg.ScoreMin, Max: cfg.ScoreMax},
				logger,
			)
			corrections, err := r.Run(cmd.Context())
			for _, c := range corrections {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6f/%d -> %.6f/%d\n",
					c.MovieID, c.Before.Average, c.Before.Count, c.After.Average, c.After.Count)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d movie(s) corrected\n", len(corrections))
			return nil
		},
	}
}
