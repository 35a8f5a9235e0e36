package checkpoint

import (
	"errors"

	"github.com/agentic-sandbox/podsnapshot/cmd/common"
	"github.com/agentic-sandbox/podsnapshot/internal/sandbox"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var (
	sandboxName string
	cleanup     bool

	logger = ctrl.Log.WithName("checkpoint")

	CheckpointCmd = &cobra.Command{
		Use:   "checkpoint [NAME]",
		Short: "Snapshot the pod of a running Sandbox",
		Long: `Creates a PodSnapshotManualTrigger for the pod of the given Sandbox and waits
until the controller has processed it. A name is generated when NAME is omitted.

The trigger and its PodSnapshot are kept so that they can be restored later,
unless --cleanup is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return subMain(cmd, name)
		},
	}
)

func init() {
	flags := CheckpointCmd.Flags()
	flags.StringVar(&sandboxName, "sandbox", "", "Name of the Sandbox whose pod is snapshotted.")
	flags.BoolVar(&cleanup, "cleanup", false, "Delete the trigger and its PodSnapshot before exiting.")
}

func subMain(cmd *cobra.Command, name string) error {
	if sandboxName == "" {
		return errors.New("--sandbox is required")
	}
	ctx := log.IntoContext(cmd.Context(), logger)

	opts, err := common.LoadOptions(cmd)
	if err != nil {
		return err
	}
	if err := opts.Validate(false); err != nil {
		return err
	}
	gw, err := common.NewGateway(opts)
	if err != nil {
		return err
	}
	common.StartMetricsServer(ctx)

	workload, err := sandbox.Attach(ctx, gw, opts.Namespace, sandboxName, opts.TemplateName)
	if err != nil {
		return err
	}

	cfg := common.SessionConfig(opts)
	cfg.KeepResources = !cleanup
	s, err := snapshot.Open(ctx, gw, cfg, workload)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	return common.PrintResult(cmd, s.Checkpoint(ctx, name))
}
