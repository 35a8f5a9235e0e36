package restore

import (
	"github.com/agentic-sandbox/podsnapshot/cmd/common"
	"github.com/agentic-sandbox/podsnapshot/internal/config"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var (
	templateName string
	labels       []string
	from         string

	logger = ctrl.Log.WithName("restore")

	RestoreCmd = &cobra.Command{
		Use:   "restore NAME",
		Short: "Provision a Sandbox from a snapshot",
		Long: `Creates the SandboxClaim NAME-from-snapshot and waits until its Sandbox is
ready. With --from the claim is bound to the PodSnapshot produced by the given
trigger, which must exist and be ready.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return subMain(cmd, args[0])
		},
	}
)

func init() {
	flags := RestoreCmd.Flags()
	flags.StringVar(&templateName, "template", "", "Name of the SandboxTemplate of the claim.")
	flags.StringArrayVarP(&labels, "label", "l", nil, "Label of the claim as key=value. May be repeated.")
	flags.StringVar(&from, "from", "", "Name of the PodSnapshotManualTrigger whose snapshot is restored.")
}

func subMain(cmd *cobra.Command, name string) error {
	ctx := log.IntoContext(cmd.Context(), logger)

	opts, err := common.LoadOptions(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("template") {
		opts.TemplateName = templateName
	}
	if len(labels) > 0 {
		parsed, err := config.ParseLabels(labels)
		if err != nil {
			return err
		}
		for k, v := range parsed {
			opts.Labels[k] = v
		}
	}
	if err := opts.Validate(true); err != nil {
		return err
	}

	gw, err := common.NewGateway(opts)
	if err != nil {
		return err
	}
	common.StartMetricsServer(ctx)

	cfg := common.SessionConfig(opts)
	cfg.SnapshotRef = from
	s, err := snapshot.Open(ctx, gw, cfg, nil)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	return common.PrintResult(cmd, s.Restore(ctx, name))
}
