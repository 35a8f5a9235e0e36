package snapshots

import (
	"fmt"

	"github.com/agentic-sandbox/podsnapshot/cmd/common"
	"github.com/agentic-sandbox/podsnapshot/internal/config"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var (
	listPolicy string
	listAll    bool
	output     string

	deleteID     string
	deletePolicy string
	deleteFilter []string

	logger = ctrl.Log.WithName("snapshots")

	SnapshotsCmd = &cobra.Command{
		Use:   "snapshots",
		Short: "List and delete PodSnapshots",
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List PodSnapshots, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd)
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete PodSnapshots by id or by policy",
		Long: `Deletes the PodSnapshot named by --id, or every PodSnapshot of --policy whose
fields equal all --filter values. Accepted filter keys are trigger_name,
source_pod, uid, creation_timestamp and ready_state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd)
		},
	}
)

func init() {
	flags := listCmd.Flags()
	flags.StringVar(&listPolicy, "policy", "", "Only list PodSnapshots of this policy.")
	flags.BoolVar(&listAll, "all", false, "Include PodSnapshots that are not ready.")
	flags.StringVarP(&output, "output", "o", outputTable, "Output format. One of: table, yaml, json.")

	flags = deleteCmd.Flags()
	flags.StringVar(&deleteID, "id", "", "Name of the PodSnapshot to delete.")
	flags.StringVar(&deletePolicy, "policy", "", "Policy of the PodSnapshots to delete.")
	flags.StringArrayVar(&deleteFilter, "filter", nil, "Additional key=value filter. May be repeated.")

	SnapshotsCmd.AddCommand(listCmd, deleteCmd)
}

func newQuery(cmd *cobra.Command) (*snapshot.Query, *snapshot.State, error) {
	opts, err := common.LoadOptions(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := opts.Validate(false); err != nil {
		return nil, nil, err
	}
	gw, err := common.NewGateway(opts)
	if err != nil {
		return nil, nil, err
	}
	return snapshot.NewQuery(gw), &snapshot.State{Namespace: opts.Namespace}, nil
}

func runList(cmd *cobra.Command) error {
	if err := validateOutput(output); err != nil {
		return err
	}
	ctx := log.IntoContext(cmd.Context(), logger)

	q, st, err := newQuery(cmd)
	if err != nil {
		return err
	}
	summaries, err := q.ListSnapshots(ctx, st, listPolicy, !listAll)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), output, summaries)
}

// deleteFilters merges the flags into snapshot.Filters.
func deleteFilters(id, policy string, pairs []string) (snapshot.Filters, error) {
	parsed, err := config.ParseLabels(pairs)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	filters := snapshot.Filters(parsed)
	if id != "" {
		filters[snapshot.FilterSnapshotID] = id
	}
	if policy != "" {
		filters[snapshot.FilterPolicyName] = policy
	}
	if filters[snapshot.FilterSnapshotID] == "" && filters[snapshot.FilterPolicyName] == "" {
		return nil, snapshot.ErrPolicyNameRequired
	}
	return filters, nil
}

func runDelete(cmd *cobra.Command) error {
	filters, err := deleteFilters(deleteID, deletePolicy, deleteFilter)
	if err != nil {
		return err
	}
	ctx := log.IntoContext(cmd.Context(), logger)

	q, st, err := newQuery(cmd)
	if err != nil {
		return err
	}
	n := q.DeleteSnapshots(ctx, st, filters)
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d PodSnapshot(s).\n", n)
	return nil
}
