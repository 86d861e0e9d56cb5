package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tracecore/internal/export"
	"tracecore/pkg/domain"
)

// baselineSummary is the row printed by baseline list.
type baselineSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Records   int    `json:"records"`
	ProjectID string `json:"projectId,omitempty"`
}

func newBaselineCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Freeze, compare and export requirement baselines",
	}

	var name, description, project string
	var refs []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Snapshot requirements into a draft baseline",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			in := domain.BaselineInput{Name: name, Description: description, ProjectID: project}
			if len(refs) == 0 {
				members := s.engine.List()
				if project != "" {
					members = s.engine.ListByProject(project)
				}
				for _, r := range members {
					in.RequirementIDs = append(in.RequirementIDs, r.ID)
				}
			}
			for _, ref := range refs {
				r, err := s.resolve(ref)
				if err != nil {
					return err
				}
				in.RequirementIDs = append(in.RequirementIDs, r.ID)
			}
			b, err := s.engine.CreateBaseline(cmd.Context(), in, s.actor)
			if err != nil {
				return err
			}
			return s.render(summarizeBaseline(b))
		}),
	}
	create.Flags().StringVar(&name, "name", "", "baseline name")
	create.Flags().StringVar(&description, "description", "", "description")
	create.Flags().StringVar(&project, "project", "", "project id; limits the default selection")
	create.Flags().StringSliceVar(&refs, "req", nil, "requirements to include (default: all)")
	_ = create.MarkFlagRequired("name")

	var exportPath string
	exp := &cobra.Command{
		Use:   "export <id|name>",
		Short: "Write a baseline with its frozen snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) (err error) {
			b, err := s.findBaseline(args[0])
			if err != nil {
				return err
			}
			if exportPath == "" {
				return export.Baseline(s.out, b, s.format)
			}
			f, err := os.Create(exportPath)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer func() { err = errors.Join(err, f.Close()) }()
			return export.Baseline(f, b, s.format)
		}),
	}
	exp.Flags().StringVar(&exportPath, "file", "", "write to this path instead of stdout")

	cmd.AddCommand(
		create,
		exp,
		&cobra.Command{
			Use:   "list",
			Short: "List baselines",
			Args:  cobra.NoArgs,
			RunE: withSession(opts, func(_ *cobra.Command, s *session, _ []string) error {
				all := s.engine.ListBaselines()
				out := make([]baselineSummary, 0, len(all))
				for _, b := range all {
					out = append(out, summarizeBaseline(b))
				}
				return s.render(out)
			}),
		},
		&cobra.Command{
			Use:   "show <id|name>",
			Short: "Print a baseline",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
				b, err := s.findBaseline(args[0])
				if err != nil {
					return err
				}
				return s.render(b)
			}),
		},
		&cobra.Command{
			Use:   "diff <id|name>",
			Short: "Compare a baseline against the live requirements",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
				b, err := s.findBaseline(args[0])
				if err != nil {
					return err
				}
				diff, _ := s.engine.CompareBaseline(b.ID)
				return s.render(diff)
			}),
		},
		baselineTransitionCmd(opts, "activate", "Move a draft baseline to active", (*session).activate),
		baselineTransitionCmd(opts, "lock", "Lock a baseline and its requirements", (*session).lock),
		baselineTransitionCmd(opts, "archive", "Archive a baseline", (*session).archive),
		&cobra.Command{
			Use:   "supersede <old> <new>",
			Short: "Replace a locked baseline with a newer one",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
				oldB, err := s.findBaseline(args[0])
				if err != nil {
					return err
				}
				newB, err := s.findBaseline(args[1])
				if err != nil {
					return err
				}
				b, found, err := s.engine.SupersedeBaseline(cmd.Context(), oldB.ID, newB.ID, s.actor)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("baseline %s not found", args[0])
				}
				return s.render(summarizeBaseline(b))
			}),
		},
		&cobra.Command{
			Use:   "delete <id|name>",
			Short: "Delete an unlocked baseline",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
				b, err := s.findBaseline(args[0])
				if err != nil {
					return err
				}
				if _, err := s.engine.DeleteBaseline(cmd.Context(), b.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "deleted baseline %s\n", b.Name)
				return nil
			}),
		},
	)
	return cmd
}

type baselineTransition func(s *session, ctx context.Context, id string) (domain.Baseline, bool, error)

func (s *session) activate(ctx context.Context, id string) (domain.Baseline, bool, error) {
	return s.engine.ActivateBaseline(ctx, id, s.actor)
}

func (s *session) lock(ctx context.Context, id string) (domain.Baseline, bool, error) {
	return s.engine.LockBaseline(ctx, id, s.actor)
}

func (s *session) archive(ctx context.Context, id string) (domain.Baseline, bool, error) {
	return s.engine.ArchiveBaseline(ctx, id, s.actor)
}

func baselineTransitionCmd(opts *rootOptions, use, short string, apply baselineTransition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id|name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			b, err := s.findBaseline(args[0])
			if err != nil {
				return err
			}
			b, found, err := apply(s, cmd.Context(), b.ID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("baseline %s not found", args[0])
			}
			return s.render(summarizeBaseline(b))
		}),
	}
}

func (s *session) findBaseline(ref string) (domain.Baseline, error) {
	b, ok := s.engine.FindBaseline(ref)
	if !ok {
		return domain.Baseline{}, fmt.Errorf("baseline %s not found", ref)
	}
	return b, nil
}

func summarizeBaseline(b domain.Baseline) baselineSummary {
	return baselineSummary{
		ID:        b.ID,
		Name:      b.Name,
		Status:    string(b.Status),
		Records:   len(b.Snapshots),
		ProjectID: b.ProjectID,
	}
}
