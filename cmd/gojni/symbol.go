package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daimatz/gojni/pkg/jni"
)

func newSymbolCmd() *cobra.Command {
	var decode bool
	cmd := &cobra.Command{
		Use:   "symbol <class> <method> [descriptor]",
		Short: "Print the Java_ symbol names of a native method",
		Long: `Print the short symbol name of a native method and, when a method
descriptor is given, the long name used to tell overloads apart.

With --decode the single argument is a symbol name, printed back as the
class, method and argument descriptors it encodes.`,
		Example: `  gojni symbol java.lang.Object hashCode
  gojni symbol demo/Calc sum '([I)J'
  gojni symbol --decode Java_demo_Calc_sum___3I`,
		Args: func(cmd *cobra.Command, args []string) error {
			if decode {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.RangeArgs(2, 3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if decode {
				n, err := jni.ParseSymbol(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "class:  %s\nmethod: %s\n", strings.ReplaceAll(n.Class, "/", "."), n.Method)
				if n.Long {
					fmt.Fprintf(out, "args:   (%s)\n", n.Args)
				}
				return nil
			}
			class := strings.ReplaceAll(args[0], ".", "/")
			fmt.Fprintln(out, jni.ShortName(class, args[1]))
			if len(args) == 3 {
				if !strings.HasPrefix(args[2], "(") || !strings.Contains(args[2], ")") {
					return fmt.Errorf("%q is not a method descriptor", args[2])
				}
				fmt.Fprintln(out, jni.LongName(class, args[1], args[2]))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&decode, "decode", false, "decode a symbol name instead")
	return cmd
}
