package probe

import (
	"fmt"

	"github.com/agentic-sandbox/podsnapshot/cmd/common"
	"github.com/agentic-sandbox/podsnapshot/internal/snapshot"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var (
	logger = ctrl.Log.WithName("probe")

	ProbeCmd = &cobra.Command{
		Use:   "probe",
		Short: "Check whether the pod snapshot controller is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return subMain(cmd)
		},
	}
)

func subMain(cmd *cobra.Command) error {
	ctx := log.IntoContext(cmd.Context(), logger)

	opts, err := common.LoadOptions(cmd)
	if err != nil {
		return err
	}
	gw, err := common.NewGateway(opts)
	if err != nil {
		return err
	}

	st := &snapshot.State{Namespace: opts.Namespace}
	if !snapshot.NewProber(gw, nil).Probe(ctx, st) {
		fmt.Fprintln(cmd.ErrOrStderr(), snapshot.ErrControllerNotReady.Error())
		return &common.ExitError{Code: 1}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Pod snapshot controller is ready.")
	return nil
}
