package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daimatz/gojni/pkg/jni"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gojni version and the newest JNI version it implements",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gojni %s (JNI %s)\n", Version, jni.VersionString(jni.LatestVersion))
		},
	}
}
