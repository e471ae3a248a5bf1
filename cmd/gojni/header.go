package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/jni"
)

func newHeaderCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "header <Class.class>",
		Short: "Generate the C header declaring a class's native methods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf, err := classfile.ParseFile(args[0])
			if err != nil {
				return err
			}
			out, err := jni.GenerateHeader(cf)
			if err != nil {
				return err
			}
			if output != "" {
				return os.WriteFile(output, out, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the header to a file")
	return cmd
}
