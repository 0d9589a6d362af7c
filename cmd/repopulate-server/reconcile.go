package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ehr/repopulate/internal/domain/repopulate"
	"github.com/ehr/repopulate/internal/platform/fhir"
)

type reconcileOptions struct {
	QuestionnairePath string
	CurrentPath       string
	ServerPath        string
	Select            []string
	Interactive       bool
	OutPath           string
	TombstoneURL      string
}

// keyOption is one selectable key with a human label.
type keyOption struct {
	Key   string
	Label string
}

// promptFunc asks the user to pick keys out of options. preselected keys
// start checked.
type promptFunc func(options []keyOption, preselected repopulate.KeySet) ([]string, error)

func reconcileCmd() *cobra.Command {
	var opts reconcileOptions
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Merge re-populated answers into a questionnaire response offline",
		Long: "Compares the current response with a freshly populated server response,\n" +
			"prints the differences and writes the current response with the selected\n" +
			"server values merged in.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.OutPath == "" {
				return runReconcile(opts, cmd.ErrOrStderr(), cmd.OutOrStdout(), promptHuh)
			}
			var buf bytes.Buffer
			if err := runReconcile(opts, cmd.ErrOrStderr(), &buf, promptHuh); err != nil {
				return err
			}
			return replaceFile(opts.OutPath, buf.Bytes())
		},
	}
	cmd.Flags().StringVar(&opts.QuestionnairePath, "questionnaire", "", "Questionnaire JSON file")
	cmd.Flags().StringVar(&opts.CurrentPath, "current", "", "Current QuestionnaireResponse JSON file (optional)")
	cmd.Flags().StringVar(&opts.ServerPath, "server", "", "Freshly populated QuestionnaireResponse JSON file")
	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "Selection keys to apply (default: every selectable key)")
	cmd.Flags().BoolVar(&opts.Interactive, "interactive", false, "Pick the changes to apply interactively")
	cmd.Flags().StringVar(&opts.OutPath, "out", "", "Write the merged response here instead of stdout")
	cmd.Flags().StringVar(&opts.TombstoneURL, "tombstone-url", repopulate.DefaultTombstoneURL, "Extension URL marking rows deleted upstream")
	cmd.MarkFlagRequired("questionnaire")
	cmd.MarkFlagRequired("server")
	cmd.MarkFlagsMutuallyExclusive("select", "interactive")
	return cmd
}

// runReconcile writes the change summary to report and the merged response
// to out.
func runReconcile(opts reconcileOptions, report, out io.Writer, prompt promptFunc) error {
	q, current, server, err := loadInputs(opts)
	if err != nil {
		return err
	}

	formatter := fhir.NewDefaultFormatter(time.Local)
	items := repopulate.BuildItemsToRepopulate(q, current, server)
	headings := repopulate.GroupByHeading(items)
	valid := repopulate.ValidKeys(headings)

	printChanges(report, headings, formatter)
	if len(valid) == 0 {
		fmt.Fprintln(report, "Nothing to repopulate.")
		return writeJSON(out, fhir.CloneResponse(current))
	}

	sel := repopulate.NewSelection(valid)
	switch {
	case len(opts.Select) > 0:
		sel, err = repopulate.ParseSelection(valid, opts.Select)
		if err != nil {
			return err
		}
	case opts.Interactive:
		keys, err := prompt(selectableOptions(headings, valid, formatter), valid)
		if err != nil {
			return err
		}
		sel = repopulate.RestoreSelection(valid, keys)
	}
	if sel.Empty() {
		return repopulate.ErrNothingSelected
	}

	filtered := repopulate.FilterItems(headings, sel.Selected(), items, opts.TombstoneURL)
	merged := repopulate.RepopulateResponse(q, current, filtered)
	fmt.Fprintf(report, "Applied %d of %d selectable change(s).\n", len(sel.Selected()), len(valid))
	return writeJSON(out, merged)
}

// replaceFile writes data next to path and renames it into place, so a
// failed write leaves an existing file untouched.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func loadInputs(opts reconcileOptions) (*fhir.Questionnaire, *fhir.QuestionnaireResponse, *fhir.QuestionnaireResponse, error) {
	data, err := os.ReadFile(opts.QuestionnairePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read questionnaire: %w", err)
	}
	q, err := fhir.ParseQuestionnaire(data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", opts.QuestionnairePath, err)
	}

	data, err = os.ReadFile(opts.ServerPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read server response: %w", err)
	}
	server, err := fhir.ParseQuestionnaireResponse(data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", opts.ServerPath, err)
	}

	current := &fhir.QuestionnaireResponse{ResourceType: "QuestionnaireResponse", Status: "in-progress"}
	if opts.CurrentPath != "" {
		data, err = os.ReadFile(opts.CurrentPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("read current response: %w", err)
		}
		current, err = fhir.ParseQuestionnaireResponse(data)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", opts.CurrentPath, err)
		}
	}
	return q, current, server, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printChanges(w io.Writer, headings []repopulate.Heading, f fhir.AnswerFormatter) {
	for _, h := range headings {
		fmt.Fprintf(w, "== %s\n", headingLabel(h))
		for _, entry := range h.Items {
			item := entry.Item
			changes := item.Changes(f)
			fmt.Fprintf(w, "  %s [%s]\n", itemLabel(&item, entry.LinkID), repopulate.ValueChangeModeOf(changes))
			if item.IsRepeating() {
				for _, row := range repopulate.GroupChangesByRow(changes) {
					fmt.Fprintf(w, "    %s\n", row.RowLabel)
					for _, c := range row.Items {
						printChange(w, "      ", c)
					}
				}
				continue
			}
			for _, c := range changes {
				printChange(w, "    ", c)
			}
		}
	}
}

func printChange(w io.Writer, indent string, c repopulate.ChangeEntry) {
	name := ""
	if c.SubItem != nil {
		name = c.SubItem.Text
		if name == "" {
			name = c.SubItem.LinkID
		}
	}
	fmt.Fprintf(w, "%s%s: %s -> %s\n", indent, name, valueOrDash(c.CurrentValue), valueOrDash(c.ServerValue))
}

func valueOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func headingLabel(h repopulate.Heading) string {
	if h.Text == "" {
		return "Other"
	}
	return h.Text
}

func itemLabel(item *repopulate.ItemToRepopulate, linkID string) string {
	if item.QItem != nil && item.QItem.Text != "" {
		return item.QItem.Text
	}
	return linkID
}

// selectableOptions lists the valid keys in heading, item, row order with
// labels a person can recognise.
func selectableOptions(headings []repopulate.Heading, valid repopulate.KeySet, f fhir.AnswerFormatter) []keyOption {
	var opts []keyOption
	for h, heading := range headings {
		for p, entry := range heading.Items {
			item := entry.Item
			base := headingLabel(heading) + " / " + itemLabel(&item, entry.LinkID)

			if !item.IsRepeating() {
				key := repopulate.CreateSelectionKey(h, p)
				if valid.Has(key) {
					opts = append(opts, keyOption{Key: key, Label: base})
				}
				continue
			}

			labels := make(map[int]string)
			for _, row := range repopulate.GroupChangesByRow(item.Changes(f)) {
				labels[row.RowIndex] = row.RowLabel
			}
			for c := 0; c < item.RowCount(); c++ {
				key := repopulate.CreateRowSelectionKey(h, p, c)
				if !valid.Has(key) {
					continue
				}
				label, ok := labels[c]
				if !ok {
					label = fmt.Sprintf("Row %d", c+1)
				}
				opts = append(opts, keyOption{Key: key, Label: base + " / " + label})
			}
		}
	}
	return opts
}

func promptHuh(options []keyOption, preselected repopulate.KeySet) ([]string, error) {
	huhOptions := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		huhOptions = append(huhOptions, huh.NewOption(o.Label, o.Key).Selected(preselected.Has(o.Key)))
	}

	var chosen []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select the changes to apply").
				Description("Unselected fields keep their current value.").
				Options(huhOptions...).
				Value(&chosen),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("failed to get user input for selection: %w", err)
	}
	return chosen, nil
}
