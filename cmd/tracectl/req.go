package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tracecore/pkg/domain"
)

// reqFlags binds the editable requirement fields. Update only applies the
// flags the caller actually set.
type reqFlags struct {
	title, description, criteria, rationale string
	reqType, category, status, priority     string
	risk, complexity, parent, verifyStatus  string
	project, owner                          string
	sortOrder, coverage                     int
	verification, tags                      []string
	fields                                  map[string]string
}

func (f *reqFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "short requirement title")
	fs.StringVar(&f.description, "description", "", "full description")
	fs.StringVar(&f.criteria, "criteria", "", "acceptance criteria")
	fs.StringVar(&f.rationale, "rationale", "", "why the requirement exists")
	fs.StringVar(&f.reqType, "type", "", "requirement type")
	fs.StringVar(&f.category, "category", "", "decomposition category")
	fs.StringVar(&f.status, "status", "", "lifecycle status")
	fs.StringVar(&f.priority, "priority", "", "priority")
	fs.StringVar(&f.risk, "risk", "", "risk level")
	fs.StringVar(&f.complexity, "complexity", "", "complexity")
	fs.StringVar(&f.parent, "parent", "", "parent requirement id or key")
	fs.StringVar(&f.verifyStatus, "verification-status", "", "verification status")
	fs.StringVar(&f.project, "project", "", "project id")
	fs.StringVar(&f.owner, "owner", "", "owner")
	fs.IntVar(&f.sortOrder, "sort-order", 0, "position among siblings")
	fs.IntVar(&f.coverage, "coverage", 0, "test coverage percentage (0-100)")
	fs.StringSliceVar(&f.verification, "verification", nil, "verification methods")
	fs.StringSliceVar(&f.tags, "tag", nil, "tags")
	fs.StringToStringVar(&f.fields, "field", nil, "custom field values as name=value")
}

func newReqCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "req",
		Aliases: []string{"requirement"},
		Short:   "Create, edit and inspect requirements",
	}

	createFlags := &reqFlags{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a requirement",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			return runReqCreate(cmd, s, createFlags)
		}),
	}
	createFlags.bind(create.Flags())

	updateFlags := &reqFlags{}
	update := &cobra.Command{
		Use:   "update <id|key>",
		Short: "Change fields of a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			return runReqUpdate(cmd, s, args[0], updateFlags)
		}),
	}
	updateFlags.bind(update.Flags())

	var byProject, byStatus, byType string
	var roots bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List requirements",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(_ *cobra.Command, s *session, _ []string) error {
			var out []domain.Requirement
			switch {
			case roots:
				out = s.engine.Roots()
			case byProject != "":
				out = s.engine.ListByProject(byProject)
			case byStatus != "":
				out = s.engine.ListByStatus(domain.Status(byStatus))
			case byType != "":
				out = s.engine.ListByType(domain.RequirementType(byType))
			default:
				out = s.engine.List()
			}
			return s.render(summarize(out))
		}),
	}
	list.Flags().StringVar(&byProject, "project", "", "only requirements in this project")
	list.Flags().StringVar(&byStatus, "status", "", "only requirements with this status")
	list.Flags().StringVar(&byType, "type", "", "only requirements of this type")
	list.Flags().BoolVar(&roots, "roots", false, "only top-level requirements")
	list.MarkFlagsMutuallyExclusive("project", "status", "type", "roots")

	cmd.AddCommand(
		create,
		update,
		list,
		&cobra.Command{
			Use:   "show <id|key>",
			Short: "Print a requirement",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
				r, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				return s.render(r)
			}),
		},
		&cobra.Command{
			Use:   "children <id|key>",
			Short: "List direct children in sibling order",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
				r, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				return s.render(summarize(s.engine.Children(r.ID)))
			}),
		},
		&cobra.Command{
			Use:   "delete <id|key>",
			Short: "Delete a requirement and its descendants",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
				r, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				if !s.engine.Delete(cmd.Context(), r.ID, s.actor) {
					return fmt.Errorf("requirement %s not found", args[0])
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "deleted %s\n", r.Key)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "history <id|key>",
			Short: "Print the change ledger of a requirement",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(opts, func(_ *cobra.Command, s *session, args []string) error {
				r, err := s.resolve(args[0])
				if err != nil {
					return err
				}
				history, _ := s.engine.History(r.ID)
				return s.render(history)
			}),
		},
	)
	return cmd
}

func runReqCreate(cmd *cobra.Command, s *session, f *reqFlags) error {
	in := domain.CreateInput{
		ProjectID:          f.project,
		Title:              f.title,
		Description:        f.description,
		AcceptanceCriteria: f.criteria,
		Rationale:          f.rationale,
		Type:               domain.RequirementType(f.reqType),
		Category:           domain.Category(f.category),
		Status:             domain.Status(f.status),
		Priority:           domain.Priority(f.priority),
		Risk:               domain.Risk(f.risk),
		Complexity:         domain.Complexity(f.complexity),
		SortOrder:          f.sortOrder,
		VerificationStatus: domain.VerificationStatus(f.verifyStatus),
		TestCoverage:       f.coverage,
		Tags:               f.tags,
		Owner:              f.owner,
	}
	if in.Type == "" {
		in.Type = domain.TypeFunctional
	}
	for _, m := range f.verification {
		in.VerificationMethods = append(in.VerificationMethods, domain.VerificationMethod(m))
	}
	if f.parent != "" {
		parent, err := s.resolve(f.parent)
		if err != nil {
			return err
		}
		in.ParentID = parent.ID
	}
	fields, err := s.customFieldValues(f.fields)
	if err != nil {
		return err
	}
	in.CustomFields = fields

	r, err := s.engine.Create(cmd.Context(), in, s.actor)
	if err != nil {
		return err
	}
	return s.render(r)
}

func runReqUpdate(cmd *cobra.Command, s *session, ref string, f *reqFlags) error {
	r, err := s.resolve(ref)
	if err != nil {
		return err
	}
	changed := cmd.Flags().Changed
	var p domain.RequirementPatch
	if changed("title") {
		p.Title = &f.title
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("criteria") {
		p.AcceptanceCriteria = &f.criteria
	}
	if changed("rationale") {
		p.Rationale = &f.rationale
	}
	if changed("type") {
		p.Type = ptr(domain.RequirementType(f.reqType))
	}
	if changed("category") {
		p.Category = ptr(domain.Category(f.category))
	}
	if changed("status") {
		p.Status = ptr(domain.Status(f.status))
	}
	if changed("priority") {
		p.Priority = ptr(domain.Priority(f.priority))
	}
	if changed("risk") {
		p.Risk = ptr(domain.Risk(f.risk))
	}
	if changed("complexity") {
		p.Complexity = ptr(domain.Complexity(f.complexity))
	}
	if changed("parent") {
		parentID := ""
		if f.parent != "" {
			parent, err := s.resolve(f.parent)
			if err != nil {
				return err
			}
			parentID = parent.ID
		}
		p.ParentID = &parentID
	}
	if changed("sort-order") {
		p.SortOrder = &f.sortOrder
	}
	if changed("verification") {
		methods := make([]domain.VerificationMethod, 0, len(f.verification))
		for _, m := range f.verification {
			methods = append(methods, domain.VerificationMethod(m))
		}
		p.VerificationMethods = &methods
	}
	if changed("verification-status") {
		p.VerificationStatus = ptr(domain.VerificationStatus(f.verifyStatus))
	}
	if changed("coverage") {
		p.TestCoverage = &f.coverage
	}
	if changed("tag") {
		p.Tags = &f.tags
	}
	if changed("project") {
		p.ProjectID = &f.project
	}
	if changed("owner") {
		p.Owner = &f.owner
	}
	if changed("field") {
		fields, err := s.customFieldValues(f.fields)
		if err != nil {
			return err
		}
		merged := domain.CloneCustomFields(r.CustomFields)
		if merged == nil {
			merged = make(map[string]domain.CustomFieldValue, len(fields))
		}
		for name, v := range fields {
			merged[name] = v
		}
		p.CustomFields = &merged
	}

	updated, found, err := s.engine.Update(cmd.Context(), r.ID, p, s.actor)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("requirement %s not found", ref)
	}
	return s.render(updated)
}

// customFieldValues parses name=value pairs using the kind of the matching
// definition. Undefined fields are stored as text.
func (s *session) customFieldValues(raw map[string]string) (map[string]domain.CustomFieldValue, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	kinds := make(map[string]domain.FieldKind)
	for _, def := range s.engine.CustomFieldDefinitions() {
		kinds[def.Name] = def.Kind
	}
	out := make(map[string]domain.CustomFieldValue, len(raw))
	for name, value := range raw {
		kind, ok := kinds[name]
		if !ok {
			kind = domain.FieldText
		}
		v, err := parseFieldValue(kind, value)
		if err != nil {
			return nil, fmt.Errorf("custom field %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func parseFieldValue(kind domain.FieldKind, raw string) (domain.CustomFieldValue, error) {
	v := domain.CustomFieldValue{Kind: kind}
	switch kind {
	case domain.FieldNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return v, err
		}
		v.Number = &n
	case domain.FieldBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return v, err
		}
		v.Bool = &b
	case domain.FieldDate:
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			t, err = time.Parse(time.RFC3339, raw)
		}
		if err != nil {
			return v, err
		}
		v.Date = &t
	case domain.FieldList:
		for _, item := range strings.Split(raw, "|") {
			if item = strings.TrimSpace(item); item != "" {
				v.List = append(v.List, item)
			}
		}
	default:
		v.Text = raw
	}
	return v, nil
}

// resolve looks a requirement up by id or key.
func (s *session) resolve(ref string) (domain.Requirement, error) {
	r, ok := s.engine.Resolve(ref)
	if !ok {
		return domain.Requirement{}, fmt.Errorf("requirement %s not found", ref)
	}
	return r, nil
}

// reqSummary is the compact row printed by list commands.
type reqSummary struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	Level    int    `json:"level"`
	Version  int    `json:"version"`
	Suspect  bool   `json:"suspect"`
	Coverage int    `json:"coverage"`
}

func summarize(reqs []domain.Requirement) []reqSummary {
	out := make([]reqSummary, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, reqSummary{
			ID:       r.ID,
			Key:      r.Key,
			Title:    r.Title,
			Type:     string(r.Type),
			Status:   string(r.Status),
			Level:    r.Level,
			Version:  r.Version,
			Suspect:  r.HasSuspectLinks,
			Coverage: r.TestCoverage,
		})
	}
	return out
}

func ptr[T any](v T) *T { return &v }
