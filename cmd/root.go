package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/agentic-sandbox/podsnapshot/cmd/checkpoint"
	"github.com/agentic-sandbox/podsnapshot/cmd/common"
	"github.com/agentic-sandbox/podsnapshot/cmd/probe"
	"github.com/agentic-sandbox/podsnapshot/cmd/restore"
	"github.com/agentic-sandbox/podsnapshot/cmd/snapshots"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// so that any kubeconfig works.
	_ "k8s.io/client-go/plugin/pkg/client/auth"
)

var rootCmd = &cobra.Command{
	Use:   "podsnapshot",
	Short: "Checkpoint and restore sandbox pods with the pod snapshot controller",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		common.SetupLogger()
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	common.BindGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(probe.ProbeCmd)
	rootCmd.AddCommand(checkpoint.CheckpointCmd)
	rootCmd.AddCommand(restore.RestoreCmd)
	rootCmd.AddCommand(snapshots.SnapshotsCmd)
}

func Execute() {
	err := rootCmd.ExecuteContext(ctrl.SetupSignalHandler())
	if err == nil {
		return
	}
	var exitErr *common.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
