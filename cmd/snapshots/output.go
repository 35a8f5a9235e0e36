package snapshots

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/agentic-sandbox/podsnapshot/internal/snapshot"
	"sigs.k8s.io/yaml"
)

const (
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputYAML, outputJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q: use table, yaml or json", format)
}

func render(w io.Writer, format string, summaries []snapshot.SnapshotSummary) error {
	if summaries == nil {
		summaries = []snapshot.SnapshotSummary{}
	}

	switch format {
	case outputYAML:
		data, err := yaml.Marshal(summaries)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case outputJSON:
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No PodSnapshots found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPOLICY\tSOURCE POD\tTRIGGER\tREADY\tCREATED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, dash(s.PolicyName), dash(s.SourcePod), dash(s.TriggerName), s.ReadyState, s.CreationTimestamp)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
