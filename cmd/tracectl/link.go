package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracecore/pkg/domain"
)

func newLinkCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage trace links between requirements and artifacts",
	}

	var linkType, targetType, description string
	add := &cobra.Command{
		Use:   "add <source> <target>",
		Short: "Link source to target; requirement targets get the inverse link",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			source, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			in := domain.LinkInput{
				SourceID:    source.ID,
				TargetID:    args[1],
				LinkType:    domain.LinkType(linkType),
				TargetType:  domain.TargetType(targetType),
				Description: description,
			}
			if in.TargetType == domain.TargetRequirement {
				target, err := s.resolve(args[1])
				if err != nil {
					return err
				}
				in.TargetID = target.ID
			}
			link, found, err := s.engine.AddLink(cmd.Context(), in, s.actor)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("requirement %s not found", args[0])
			}
			return s.render(link)
		}),
	}
	add.Flags().StringVar(&linkType, "type", string(domain.LinkDerivesTo), "link type")
	add.Flags().StringVar(&targetType, "target-type", string(domain.TargetRequirement), "target kind")
	add.Flags().StringVar(&description, "description", "", "free text note")

	cmd.AddCommand(
		add,
		&cobra.Command{
			Use:   "remove <source> <link-id>",
			Short: "Remove a link and its inverse",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
				source, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				if !s.engine.RemoveLink(cmd.Context(), source.ID, args[1], s.actor) {
					return fmt.Errorf("link %s not found on %s", args[1], source.Key)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "removed %s\n", args[1])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list <id|key>",
			Short: "List links owned by a requirement",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
				r, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				return s.render(s.engine.Links(r.ID))
			}),
		},
		&cobra.Command{
			Use:   "upstream <id|key>",
			Short: "List requirements this one derives from",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
				r, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				return s.render(summarize(s.engine.Upstream(r.ID)))
			}),
		},
		&cobra.Command{
			Use:   "downstream <id|key>",
			Short: "List requirements derived from this one",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
				r, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				return s.render(summarize(s.engine.Downstream(r.ID)))
			}),
		},
	)
	return cmd
}

func newSuspectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suspect",
		Short: "Review links flagged after their target changed",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every suspect link",
			Args:  cobra.NoArgs,
			RunE: withSession(opts, func(_ *cobra.Command, s *session, _ []string) error {
				return s.render(s.engine.SuspectLinks())
			}),
		},
		&cobra.Command{
			Use:   "clear <id|key> <link-id>",
			Short: "Mark a suspect link as reviewed",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
				r, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				if !s.engine.ClearSuspect(cmd.Context(), r.ID, args[1], s.actor) {
					return fmt.Errorf("link %s not found on %s", args[1], r.Key)
				}
				updated, _ := s.engine.Get(r.ID)
				link, _ := updated.Link(args[1])
				return s.render(link)
			}),
		},
	)
	return cmd
}
