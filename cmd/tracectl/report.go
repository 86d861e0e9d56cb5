package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tracecore/pkg/domain"
)

func newImpactCmd(opts *rootOptions) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "impact <id|key>",
		Short: "List requirements reachable through trace links",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
			r, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			return s.render(s.engine.AnalyzeImpact(r.ID, depth))
		}),
	}
	cmd.Flags().IntVar(&depth, "depth", 3, "maximum number of hops")
	return cmd
}

func newCoverageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "coverage",
		Short: "Summarize test coverage by type and status",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(_ *cobra.Command, s *session, _ []string) error {
			return s.render(s.engine.CoverageReport())
		}),
	}
}

// errBlocked signals a transition with blocking violations.
var errBlocked = errors.New("transition blocked")

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "validate <id|key>",
		Short: "Check whether a requirement may move to a status",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
			r, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			res, _ := s.engine.ValidateTransition(r.ID, domain.Status(target))
			if res.Violations == nil {
				res.Violations = []domain.Violation{}
			}
			if err := s.render(res); err != nil {
				return err
			}
			if res.HasBlocking() {
				return fmt.Errorf("%s to %s: %w", r.Key, target, errBlocked)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&target, "status", "", "target status")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}
