package main

import (
	"github.com/spf13/cobra"

	"tracecore/pkg/domain"
)

func newFieldCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Declare custom requirement fields",
	}

	var kind, description string
	var required bool
	var options []string
	define := &cobra.Command{
		Use:   "define <name>",
		Short: "Declare or replace a custom field",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			def, err := s.engine.DefineCustomField(cmd.Context(), domain.CustomFieldDefinition{
				Name:        args[0],
				Kind:        domain.FieldKind(kind),
				Required:    required,
				Options:     options,
				Description: description,
			})
			if err != nil {
				return err
			}
			return s.render(def)
		}),
	}
	define.Flags().StringVar(&kind, "kind", string(domain.FieldText), "text, number, bool, date or list")
	define.Flags().StringVar(&description, "description", "", "description")
	define.Flags().BoolVar(&required, "required", false, "mark the field as required")
	define.Flags().StringSliceVar(&options, "option", nil, "allowed values for list fields")

	cmd.AddCommand(define, &cobra.Command{
		Use:   "list",
		Short: "List custom field definitions",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(_ *cobra.Command, s *session, _ []string) error {
			return s.render(s.engine.CustomFieldDefinitions())
		}),
	})
	return cmd
}
